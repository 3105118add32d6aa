package artifact

import "fmt"

const (
	KiB int64 = 1 << 10
	MiB int64 = 1 << 20
	GiB int64 = 1 << 30
)

// FormatSize renders a byte count with base-1024 units and two decimals.
func FormatSize(n int64) string {
	switch {
	case n >= GiB:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(GiB))
	case n >= MiB:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(MiB))
	case n >= KiB:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
