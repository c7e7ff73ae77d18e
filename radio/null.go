package radio

// Null is the RXB variant: a passive receiver module with no SPI
// control surface. It is always initialized and reports no RSSI,
// because there is no chip register to read it from.
type Null struct{}

var _ Frontend = Null{}

func (Null) RSSI() float64 { return 0.0 }
func (Null) State() State  { return StateInitialized }
