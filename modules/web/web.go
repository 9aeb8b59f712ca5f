// Package web implements static-site hosting (supplemented feature #5):
// deploy a zip archive of files under an owner/site namespace, remove it,
// look up its metadata, and list known deployments.
//
// Grounded on `many-web/src/module.rs` and `src/storage.rs`
// (original_source). The original walks an extracted directory tree and
// writes one merk Op::Put per file plus a metadata entry, removing a site
// by first listing then deleting every key under its prefix; the Go port
// follows the same two-root layout (file content under /http/..., metadata
// under /meta/...) but extracts the zip archive in memory with the standard
// library's archive/zip instead of unpacking to a temporary directory on
// disk with walkdir, since pkg/merkle already holds arbitrary byte values
// directly (no filesystem-backed intermediate directory is needed).
package web

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"unicode"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID identifies the web module.
const AttributeID uint32 = 23

const (
	errInvalidSiteName        = 1
	errInvalidSiteDescription = 2
	errInvalidZipFile         = 3
	errSiteNotFound           = 4
	errNotOwner               = 5
	errKeyShouldStartWithHTTP = 6
)

func errInvalidSiteNameErr(name string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errInvalidSiteName, "Invalid site name '{name}'.", map[string]string{"name": name})
}

func errInvalidSiteDescriptionErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errInvalidSiteDescription, "Invalid site description.", nil)
}

func errInvalidZipFileErr(details string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errInvalidZipFile, "Invalid zip file:\n{details}", map[string]string{"details": details})
}

func errSiteNotFoundErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errSiteNotFound, "Site not found.", nil)
}

func errNotOwnerErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errNotOwner, "Sender does not own this site.", nil)
}

func errKeyShouldStartWithHTTPErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errKeyShouldStartWithHTTP, "Key should start with /http.", nil)
}

const (
	httpRoot = "/http"
	metaRoot = "/meta"
)

func fileKey(owner address.Address, site, file string) []byte {
	return []byte(httpRoot + "/" + owner.String() + "/" + site + "/" + file)
}

func filePrefix(owner address.Address, site string) []byte {
	return []byte(httpRoot + "/" + owner.String() + "/" + site + "/")
}

func metaKey(owner address.Address, site string) []byte {
	return []byte(metaRoot + "/" + owner.String() + "/" + site)
}

func metaPrefix() []byte { return []byte(metaRoot + "/") }

// Info is the metadata recorded for one deployed site.
type Info struct {
	Owner       address.Address
	SiteName    string
	Description string
	URL         string
}

type wireInfo struct {
	Owner       []byte `cbor:"0,keyasint"`
	SiteName    string `cbor:"1,keyasint"`
	Description string `cbor:"2,keyasint,omitempty"`
	URL         string `cbor:"3,keyasint"`
}

func (i Info) marshal() ([]byte, error) {
	return mcbor.Marshal(wireInfo{Owner: i.Owner.ToVec(), SiteName: i.SiteName, Description: i.Description, URL: i.URL})
}

func unmarshalInfo(data []byte) (Info, error) {
	var w wireInfo
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return Info{}, err
	}
	owner, err := address.FromBytes(w.Owner)
	if err != nil {
		return Info{}, err
	}
	return Info{Owner: owner, SiteName: w.SiteName, Description: w.Description, URL: w.URL}, nil
}

func urlForSite(owner address.Address, site string) string {
	return "https://" + site + "-" + owner.String() + ".localhost:8880"
}

func allAlphanumericOrSymbols(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		return false
	}
	return true
}

// Deploy extracts a zip archive's files under owner/siteName and records its
// metadata, returning the site's public URL.
func Deploy(store *merkle.Store, owner address.Address, siteName, description string, zipData []byte) (string, error) {
	if siteName == "" || !allAlphanumericOrSymbols(siteName) {
		return "", errInvalidSiteNameErr(siteName)
	}
	if description != "" && !allAlphanumericOrSymbols(description) {
		return "", errInvalidSiteDescriptionErr()
	}

	reader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return "", errInvalidZipFileErr(err.Error())
	}

	ops := make([]merkle.Op, 0, len(reader.File)+1)
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errInvalidZipFileErr(err.Error())
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", errInvalidZipFileErr(err.Error())
		}
		ops = append(ops, merkle.Op{Key: fileKey(owner, siteName, f.Name), Value: content})
	}

	url := urlForSite(owner, siteName)
	info := Info{Owner: owner, SiteName: siteName, Description: description, URL: url}
	data, err := info.marshal()
	if err != nil {
		return "", err
	}
	ops = append(ops, merkle.Op{Key: metaKey(owner, siteName), Value: data})

	store.Apply(ops)
	return url, nil
}

// Remove deletes every file and the metadata entry for owner/siteName.
// Only the owning address may remove its own site.
func Remove(store *merkle.Store, sender address.Address, owner address.Address, siteName string) error {
	info, found, err := GetInfo(store, owner, siteName)
	if err != nil {
		return err
	}
	if !found {
		return errSiteNotFoundErr()
	}
	if info.Owner != sender {
		return errNotOwnerErr()
	}

	rows, err := store.Range(merkle.RangeOptions{Prefix: filePrefix(owner, siteName)})
	if err != nil {
		return err
	}
	ops := make([]merkle.Op, 0, len(rows)+1)
	for _, row := range rows {
		ops = append(ops, merkle.Op{Key: row.Key, Delete: true})
	}
	ops = append(ops, merkle.Op{Key: metaKey(owner, siteName), Delete: true})
	store.Apply(ops)
	return nil
}

// GetInfo returns the metadata for owner/siteName, if deployed.
func GetInfo(store *merkle.Store, owner address.Address, siteName string) (Info, bool, error) {
	raw, found, err := store.Get(metaKey(owner, siteName))
	if err != nil || !found {
		return Info{}, found, err
	}
	info, err := unmarshalInfo(raw)
	return info, true, err
}

// GetFile returns the raw content of one deployed file. key must fall under
// the /http root.
func GetFile(store *merkle.Store, key []byte) ([]byte, bool, error) {
	if !bytes.HasPrefix(key, []byte(httpRoot)) {
		return nil, false, errKeyShouldStartWithHTTPErr()
	}
	return store.Get(key)
}

// List returns every deployed site's metadata, optionally filtered by
// owner, ordered by owner then site name.
func List(store *merkle.Store, owner *address.Address) ([]Info, error) {
	rows, err := store.Range(merkle.RangeOptions{Prefix: metaPrefix()})
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(rows))
	for _, row := range rows {
		info, err := unmarshalInfo(row.Value)
		if err != nil {
			return nil, err
		}
		if owner != nil && info.Owner != *owner {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Owner != infos[j].Owner {
			return bytes.Compare(infos[i].Owner.ToVec(), infos[j].Owner.ToVec()) < 0
		}
		return infos[i].SiteName < infos[j].SiteName
	})
	return infos, nil
}
