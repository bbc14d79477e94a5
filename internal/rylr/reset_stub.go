//go:build !linux

package rylr

import "fmt"

func Reset(lineName string) error {
	return fmt.Errorf("rylr: gpio reset unsupported on this platform")
}
