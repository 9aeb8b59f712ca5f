package mcbor

import (
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestTimestampRoundTrip(t *testing.T) {
	want := FromTime(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	data, err := Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Timestamp
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAmountRoundTripSmallAndBig(t *testing.T) {
	small := AmountFromUint64(42)
	data, err := Marshal(small)
	if err != nil {
		t.Fatalf("Marshal small: %v", err)
	}
	var gotSmall Amount
	if err := Unmarshal(data, &gotSmall); err != nil {
		t.Fatalf("Unmarshal small: %v", err)
	}
	if gotSmall.String() != "42" {
		t.Fatalf("got %s want 42", gotSmall.String())
	}

	huge := new(big.Int)
	huge.SetString("123456789012345678901234567890", 10)
	big := NewAmount(huge)
	data, err = Marshal(big)
	if err != nil {
		t.Fatalf("Marshal big: %v", err)
	}
	var gotBig Amount
	if err := Unmarshal(data, &gotBig); err != nil {
		t.Fatalf("Unmarshal big: %v", err)
	}
	if gotBig.String() != huge.String() {
		t.Fatalf("got %s want %s", gotBig.String(), huge.String())
	}
}

func TestMemoRoundTrip(t *testing.T) {
	textItem, err := MemoText("hello world")
	if err != nil {
		t.Fatalf("MemoText: %v", err)
	}
	byteItem, err := MemoBytes([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("MemoBytes: %v", err)
	}
	memo, err := NewMemo(textItem, byteItem)
	if err != nil {
		t.Fatalf("NewMemo: %v", err)
	}

	data, err := Marshal(memo)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Memo
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("got %d items want 2", len(got.Items))
	}
	if !got.Items[0].IsText() || got.Items[0].Text != "hello world" {
		t.Fatalf("item 0 mismatch: %+v", got.Items[0])
	}
	if !got.Items[1].IsBytes() || string(got.Items[1].Bytes) != "\x01\x02\x03" {
		t.Fatalf("item 1 mismatch: %+v", got.Items[1])
	}
}

func TestMemoRejectsEmptySequence(t *testing.T) {
	if _, err := NewMemo(); err == nil {
		t.Fatalf("NewMemo() with no items should fail")
	}

	data, err := Marshal([]MemoItem{})
	if err != nil {
		t.Fatalf("Marshal empty slice: %v", err)
	}
	var got Memo
	if err := Unmarshal(data, &got); err == nil {
		t.Fatalf("decoding an empty memo sequence should fail")
	}
}

func TestMemoItemRejectsOversizedPayload(t *testing.T) {
	over := strings.Repeat("a", MemoItemMaxBytes+1)
	if _, err := MemoText(over); err == nil {
		t.Fatalf("oversized text item should be rejected")
	}
	if _, err := MemoBytes(make([]byte, MemoItemMaxBytes+1)); err == nil {
		t.Fatalf("oversized byte item should be rejected")
	}
}
