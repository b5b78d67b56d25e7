package node

// truncate bounds how much of a bad line ends up in the logs.
func truncate(b []byte, max int) []byte {
	if len(b) <= max {
		return b
	}
	return b[:max]
}
