package simulator

import "sync"

// Battery models an EV battery charged at a constant power.
type Battery struct {
	CapacityKWh  float64
	ChargeRateKW float64

	mu  sync.Mutex
	soc float64 // percent
}

// NewBattery returns a battery at soc percent.
func NewBattery(capacityKWh, chargeRateKW, soc float64) *Battery {
	b := &Battery{CapacityKWh: capacityKWh, ChargeRateKW: chargeRateKW}
	b.SetSoC(soc)
	return b
}

// SoC returns the state of charge in percent.
func (b *Battery) SoC() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.soc
}

// SetSoC clamps and stores the state of charge.
func (b *Battery) SetSoC(soc float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.soc = clamp(soc)
}

// Charge adds the energy of hours of charging and returns the energy
// actually stored in kWh.
func (b *Battery) Charge(hours float64) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hours <= 0 || b.CapacityKWh <= 0 {
		return 0
	}
	avail := (100 - b.soc) / 100 * b.CapacityKWh
	energy := b.ChargeRateKW * hours
	if energy > avail {
		energy = avail
	}
	b.soc = clamp(b.soc + energy/b.CapacityKWh*100)
	return energy
}

// PctPerHour is the charge rate expressed as percent per hour.
func (b *Battery) PctPerHour() float64 {
	if b.CapacityKWh <= 0 {
		return 0
	}
	return b.ChargeRateKW / b.CapacityKWh * 100
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
