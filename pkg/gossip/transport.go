package gossip

// Transport delivers one value to one peer and returns the msg_id of the
// request so the acknowledgement can be matched later.
type Transport interface {
	Send(dest NodeID, value int) (msgID uint64, err error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(dest NodeID, value int) (uint64, error)

func (f TransportFunc) Send(dest NodeID, value int) (uint64, error) { return f(dest, value) }
