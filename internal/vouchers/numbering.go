package vouchers

import "fmt"

// FormatNumber renders an automatic voucher number, e.g. "SAL/24-25/0042".
func FormatNumber(prefix, fyShort string, seq int64) string {
	return fmt.Sprintf("%s/%s/%04d", prefix, fyShort, seq)
}
