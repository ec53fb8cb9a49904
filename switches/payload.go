package switches

import (
	"fmt"
	"math"
)

// VariableDuration scales duration by how much was paid relative to the price.
// A zero price leaves the duration unchanged.
func VariableDuration(duration int, priceMsat uint64, paidMsat uint64) int {
	if priceMsat == 0 {
		return duration
	}
	return int(math.Round(float64(duration) / float64(priceMsat) * float64(paidMsat)))
}

// BuildPayload formats the instruction sent to a device: "{pin}-{duration}",
// followed by "-{comment}" when comment is not empty.
func BuildPayload(pin int, duration int, comment string) string {
	payload := fmt.Sprintf("%d-%d", pin, duration)
	if comment != "" {
		payload = payload + "-" + comment
	}
	return payload
}

// PasswordMatches reports whether comment unlocks a switch. Switches without a
// password always match.
func PasswordMatches(sw *Switch, comment string) bool {
	if sw.Password == nil || *sw.Password == "" {
		return true
	}
	return comment == *sw.Password
}

// HasPassword reports whether the switch is password protected.
func HasPassword(sw *Switch) bool {
	return sw.Password != nil && *sw.Password != ""
}
