//go:build !linux

package bridge

import (
	"net"
	"os"
	"path/filepath"
)

// Address maps a logical socket name to a dialable unix address. Without an
// abstract namespace, plain names become files in the temp directory.
func Address(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(os.TempDir(), name+".sock")
}

func listen(name string) (net.Listener, func(), error) {
	return listenPath(Address(name))
}
