package device

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one candidate serial port.
type PortInfo struct {
	Path         string `json:"path"`
	VendorID     string `json:"vendorId,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	SerialNumber string `json:"serialNumber,omitempty"`
}

// ListPorts enumerates serial ports with USB metadata. Ports without any
// identifying metadata are filtered out, the same way the desktop tool hides
// bare legacy ports from the operator.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, deviceErr("list ports", err)
	}

	out := make([]PortInfo, 0, len(details))
	for _, p := range details {
		if !p.IsUSB && p.SerialNumber == "" {
			continue
		}
		out = append(out, PortInfo{
			Path:         p.Name,
			VendorID:     p.VID,
			ProductID:    p.PID,
			SerialNumber: p.SerialNumber,
		})
	}
	return out, nil
}

// String renders one line of the port listing.
func (p PortInfo) String() string {
	if p.VendorID == "" && p.ProductID == "" {
		return p.Path
	}
	return fmt.Sprintf("%s (%s:%s)", p.Path, p.VendorID, p.ProductID)
}
