// Package socket defines the operating system socket primitive consumed by
// multisock groups.
//
// Provides:
//   - Primitive - create/bind/listen/accept/connect/close plus a readable-wait
//     over a small descriptor set
//   - Address - an endpoint with an embedded address family (IPv4, IPv6, Unix)
//   - Unix - the Primitive backed by golang.org/x/sys/unix
//   - Classify - errno to errors.Code mapping
//
// Descriptors are raw integers. Whoever holds one is responsible for closing it.
package socket
