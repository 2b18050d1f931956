package auth

// Partition names one of the three isolated credential stores. The partition
// fixes the role: a token minted by a partition's manager always carries that
// partition's role and nothing else.
type Partition string

const (
	PartitionAdmin  Partition = "admin"
	PartitionStaff  Partition = "staff"
	PartitionMember Partition = "member"
)

func (p Partition) IsValid() bool {
	switch p {
	case PartitionAdmin, PartitionStaff, PartitionMember:
		return true
	default:
		return false
	}
}

// Role is the role claim fixed by this partition.
func (p Partition) Role() string {
	return string(p)
}

// CookieName is the session cookie namespace for this partition. The three
// names are distinct on purpose: one browser can hold an admin session and a
// member session at the same time without either clobbering the other.
func (p Partition) CookieName() string {
	switch p {
	case PartitionAdmin:
		return "admin-session-token"
	case PartitionMember:
		return "member-session-token"
	default:
		return "session-token"
	}
}
