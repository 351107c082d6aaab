// Package multisock groups several sockets into one logical endpoint.
//
// A Group owns a set of source descriptors, typically one per address family,
// and offers a single Accept across all of them plus connect helpers that try
// resolved addresses in order.
//
// # Architecture Overview
//
//	multisock/           Group, Attr, source registry, observers
//	├── socket/          OS socket primitive (golang.org/x/sys/unix) and addresses
//	│   └── sockettest/  Scriptable in-memory primitive for tests
//	├── resolve/         Name resolvers: System, DNS (miekg/dns), Static
//	├── resource/        Generic handle table backing the registry
//	├── errors/          Structured error types
//	├── metrics/         Prometheus observer
//	├── config/          TOML configuration for the CLI
//	└── cmd/msock/       Command line client and echo server
//
// # Quick Start
//
// Listen on both loopback families and serve connections:
//
//	g, err := multisock.New(nil)
//	if err != nil {
//		return err
//	}
//	defer g.Close()
//
//	for _, s := range []string{"127.0.0.1:8080", "[::1]:8080"} {
//		addr, _ := socket.ParseAddress(s)
//		if _, err := g.Listen(addr, 128); err != nil {
//			return err
//		}
//	}
//
//	for {
//		acc, err := g.Accept()
//		if err != nil {
//			return err
//		}
//		if acc == nil {
//			continue // spurious wake
//		}
//		conn, err := multisock.FileConn(acc.FD)
//		...
//	}
//
// Connect by name:
//
//	fd, err := g.ConnectByName(ctx, "example.com", "http")
//
// # Ownership
//
// Descriptors created by Listen stay owned by the group and are closed by
// Close. Descriptors returned by Accept, Connect and ConnectByName belong to
// the caller. A failed connect attempt never leaves a descriptor behind.
//
// # Concurrency
//
// A Group is not safe for concurrent use. Accept blocks until at least one
// member is readable and has no cancellation; callers that need bounded waits
// manage the returned descriptors themselves.
//
// # Error Handling
//
// Every failure is an *errors.Error with a Phase and Kind:
//
//	if errors.Is(err, multisock.ErrNoSources) {
//		// nothing to accept on
//	}
//
// OS failures unwrap to the syscall.Errno that caused them.
package multisock
