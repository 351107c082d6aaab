//go:build !unix

package multisock

import "github.com/wippyai/multisock/socket"

func defaultPrimitive() socket.Primitive {
	return nil
}
