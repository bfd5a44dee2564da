package recursor

import "net/netip"

// TraceEvent describes one upstream consultation during an iterative
// resolution, or the final answer when Final is set. How (or whether) events
// are printed is up to the consumer; the engine only emits them.
type TraceEvent struct {
	Qname  string
	Qtype  uint16
	Server netip.Addr // nameserver consulted; invalid for a final event that failed
	Rcode  int
	Answer int // answer section length
	Ns     int // authority section length
	Extra  int // additional section length
	Final  bool
	Err    error
}

// TraceFunc receives TraceEvents. It is called synchronously from the
// resolution path and must not block.
type TraceFunc func(ev TraceEvent)
