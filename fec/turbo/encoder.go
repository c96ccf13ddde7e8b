package turbo

// Encode runs the rate-1/3 PCCC turbo encoder over input (0/1 per
// byte): encoder 1 operates on input directly, encoder 2 operates on
// the interleaved input. Output layout is systematic, parity1, parity2,
// each len(input) long; the trellis is not terminated, so no tail bits
// are appended.
func Encode(input []byte) (sys, parity1, parity2 []byte, il *Interleaver) {
	il = NewInterleaver(len(input))

	sys1, parity1, _ := RSCEncode(input)
	interleaved := il.Permute(input)
	_, parity2, _ = RSCEncode(interleaved)

	return sys1, parity1, parity2, il
}
