package enums

// QuerySender identifies which side of a payout query thread wrote a message.
type QuerySender string

const (
	QuerySenderUser  QuerySender = "user"
	QuerySenderAdmin QuerySender = "admin"
)

// IsValid reports whether the value is a known QuerySender.
func (q QuerySender) IsValid() bool {
	return q == QuerySenderUser || q == QuerySenderAdmin
}
