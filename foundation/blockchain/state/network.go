package state

// ConnectToPeer asks the worker to dial the specified address. The call
// returns right away; a failed dial is only logged.
func (s *State) ConnectToPeer(address string) {
	s.evHandler("state: ConnectToPeer: signal connect: peer[%s]", address)
	s.Worker.SignalConnectPeer(address)
}
