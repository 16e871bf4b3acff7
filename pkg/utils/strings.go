package utils

import (
	"fmt"
	"strconv"
)

// Formats an uint value into an fixed width hex string of n characters —
// used to render symbol/section addresses consistently across the diff,
// dump, view and explore commands.
func FormatUintHex(value uint64, bits int) string {
	leadingZerosFormat := "0x%0" + fmt.Sprint(bits) + "s"
	return fmt.Sprintf(leadingZerosFormat, strconv.FormatUint(value, 16))
}
