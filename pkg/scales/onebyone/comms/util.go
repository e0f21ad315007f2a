package comms

// XORChecksum computes the checksum by XORing data[start:end].
func XORChecksum(data []byte, start, end int) byte {
	var checksum byte = 0
	for _, b := range data[start:end] {
		checksum ^= b
	}
	return checksum
}
