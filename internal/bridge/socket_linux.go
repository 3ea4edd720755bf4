//go:build linux

package bridge

import (
	"net"
	"path/filepath"
)

// Address maps a logical socket name to a dialable unix address. Plain names
// live in the abstract namespace; absolute paths are used as-is.
func Address(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return "@" + name
}

func listen(name string) (net.Listener, func(), error) {
	if filepath.IsAbs(name) {
		return listenPath(name)
	}
	l, err := net.Listen("unix", Address(name))
	if err != nil {
		return nil, nil, err
	}
	return l, func() {}, nil
}
