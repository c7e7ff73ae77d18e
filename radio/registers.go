package radio

// CC1101 SPI header flags (ORed with the register address in byte 0 of
// every transfer).
const (
	writeSingle = 0x00
	writeBurst  = 0x40
	readSingle  = 0x80
	readBurst   = 0xC0
)

// Register addresses used directly by this driver; the rest of the
// configuration block is written burst-style and never read back
// individually.
const (
	regIOCFG2    = 0x00
	regIOCFG0    = 0x02
	regPATABLE   = 0x3E
	regSRES      = 0x30 // reset strobe
	regSRX       = 0x34 // receive-mode strobe, also the RSSI register address
	regMARCSTATE = 0x35
)

const marcStateRX = 0x0D // low 5 bits of MARCSTATE while receiving

// configBlock is the 47-byte register configuration written starting at
// register 0x00 with the write-burst flag. Values and ordering come
// from the reference CC1101.cpp and are reproduced unchanged: 433.92MHz
// base frequency, 6.0kBaud data rate, 325kHz receive bandwidth, sync
// word 0xD391.
var configBlock = [...]byte{
	0x2E, // IOCFG2        High-Z, GDO2 not connected
	0x2E, // IOCFG1        High-Z, shared with SPI MISO
	0x0D, // IOCFG0        GDO0 data output
	0x47, // FIFOTHR
	0xD3, // SYNC1
	0x91, // SYNC0
	0xFF, // PKTLEN
	0x04, // PKTCTRL1
	0x32, // PKTCTRL0
	0x00, // ADDR
	0x00, // CHANNR
	0x06, // FSCTRL1
	0x00, // FSCTRL0
	0x10, // FREQ2
	0xB0, // FREQ1
	0x72, // FREQ0
	0x57, // MDMCFG4
	0xE4, // MDMCFG3
	0x30, // MDMCFG2
	0x23, // MDMCFG1
	0xB9, // MDMCFG0
	0x15, // DEVIATN
	0x07, // MCSM2
	0x3C, // MCSM1
	0x18, // MCSM0
	0x16, // FOCCFG
	0x6C, // BSCFG
	0x07, // AGCCTRL2
	0x00, // AGCCTRL1
	0x92, // AGCCTRL0
	0x87, // WOREVT1
	0x6B, // WOREVT0
	0xFB, // WORCTRL
	0xB6, // FREND1
	0x11, // FREND0
	0xE9, // FSCAL3
	0x2A, // FSCAL2
	0x00, // FSCAL1
	0x1F, // FSCAL0
	0x41, // RCCTRL1
	0x00, // RCCTRL0
	0x59, // FSTEST
	0x7F, // PTEST
	0x3F, // AGCTEST
	0x81, // TEST2
	0x35, // TEST1
	0x09, // TEST0
}

// patable is burst-written at regPATABLE; the second byte is the
// transmit power setting, irrelevant to reception but matched to the
// reference driver.
var patable = [8]byte{0x00, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
