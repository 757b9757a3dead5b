package format

import "time"

const dateLayout = "02-01-2006"

// PaymentTermDays is the fixed offset between invoice date and due date.
const PaymentTermDays = 14

// Date renders a calendar date as dd-mm-yyyy.
func Date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

// DueDate adds PaymentTermDays calendar days to the invoice date.
func DueDate(invoiceDate time.Time) time.Time {
	return invoiceDate.AddDate(0, 0, PaymentTermDays)
}
