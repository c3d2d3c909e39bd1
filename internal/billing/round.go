package billing

// RoundDuration snaps seconds to the nearest multiple of intervalMinutes,
// rounding half up. A non-positive interval returns seconds unchanged.
// Negative input is treated as zero.
func RoundDuration(seconds int64, intervalMinutes int) int64 {
	if seconds < 0 {
		seconds = 0
	}
	if intervalMinutes <= 0 {
		return seconds
	}
	step := int64(intervalMinutes) * 60
	rem := seconds % step
	if rem*2 >= step {
		return seconds - rem + step
	}
	return seconds - rem
}
