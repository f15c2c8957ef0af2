package tape

// CRCC/LRCC computation for NRZI (800 bpi) records, per ANSI X3.22/ECMA-12
// as described in spec §4.1: the CRC register is a 9-bit right-rotate with
// a forced XOR of 0b000011100 whenever the rotated-out bit was 1, and a
// final XOR of 0b111010111 once every byte has been folded in. The LRCC is
// the XOR of every record byte together with the finished CRCC byte.
//
// This is the image-format-agnostic stub spec §9 calls for: it gives
// diagnostic reads something deterministic to return, not a bit-accurate
// reproduction of 800 bpi NRZI tape electronics (the byte-addressed image
// format has no channel to carry that).

const (
	crcForcedXOR = 0b000011100
	crcFinalXOR  = 0b111010111
	crcMask      = 0x1FF // 9 bits
)

// crcStep folds one data byte into a 9-bit CRC register.
func crcStep(crc uint16, b byte) uint16 {
	crc ^= uint16(b)
	lsb := crc & 1
	crc = (crc>>1 | lsb<<8) & crcMask
	if lsb == 1 {
		crc ^= crcForcedXOR
	}
	return crc & crcMask
}

// ComputeCRCCLRCC returns the CRCC and LRCC trailer bytes for data, the
// way a successful NRZI read (or a realtime-mode read on the 1000-NRZI
// controller) appends them past the record in the buffer.
func ComputeCRCCLRCC(data []byte) (crcc, lrcc byte) {
	var crc uint16
	for _, b := range data {
		crc = crcStep(crc, b)
	}
	crc ^= crcFinalXOR
	crcc = byte(crc & 0xFF)

	var lrc byte
	for _, b := range data {
		lrc ^= b
	}
	lrcc = lrc ^ crcc
	return crcc, lrcc
}
