//go:build !linux

package serialport

import (
	"fmt"
	"os"
)

func Open(path string, baud int) (*os.File, error) {
	return nil, fmt.Errorf("serial port not supported on this platform")
}
