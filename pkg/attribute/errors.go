package attribute

import "fmt"

func errWrongAttribute(want, got uint32) error {
	return fmt.Errorf("attribute: expected attribute id %d, got %d", want, got)
}

func errArgCount(id uint32, want, got int) error {
	return fmt.Errorf("attribute: attribute %d expects %d argument(s), got %d", id, want, got)
}

func errChainBreak(i int) error {
	return fmt.Errorf("attribute: delegation chain broken at certificate %d", i)
}

func errWindow(i int) error {
	return fmt.Errorf("attribute: delegation certificate %d is outside its validity window", i)
}
