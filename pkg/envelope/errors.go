package envelope

import "fmt"

func errMissingKey() error {
	return fmt.Errorf("envelope: no public key embedded in the envelope and none supplied externally")
}
