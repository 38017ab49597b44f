package domain

// Partition names one persisted collection. Its Key is the storage key the
// collection is serialised under.
type Partition string

const (
	PartitionUsers         Partition = "users"
	PartitionRequests      Partition = "requests"
	PartitionNotifications Partition = "notifications"
	PartitionAlerts        Partition = "alerts"
	PartitionCompliance    Partition = "compliance"
	PartitionUploads       Partition = "uploads"
	PartitionActivityLogs  Partition = "activity_logs"
	PartitionChats         Partition = "chats"
	PartitionAdminNotes    Partition = "admin_notes"
	PartitionCurrentUser   Partition = "currentUser"
)

const keyPrefix = "optigov_"

// Partitions lists every collection partition. The current-user snapshot is
// not a collection and is excluded.
var Partitions = []Partition{
	PartitionUsers,
	PartitionRequests,
	PartitionNotifications,
	PartitionAlerts,
	PartitionCompliance,
	PartitionUploads,
	PartitionActivityLogs,
	PartitionChats,
	PartitionAdminNotes,
}

// Key returns the storage key for p.
func (p Partition) Key() string { return keyPrefix + string(p) }

// PartitionForKey maps a storage key back to its partition.
func PartitionForKey(key string) (Partition, bool) {
	if len(key) <= len(keyPrefix) || key[:len(keyPrefix)] != keyPrefix {
		return "", false
	}
	p := Partition(key[len(keyPrefix):])
	if p == PartitionCurrentUser {
		return p, true
	}
	for _, known := range Partitions {
		if known == p {
			return p, true
		}
	}
	return "", false
}

// ParsePartition validates a user supplied partition name.
func ParsePartition(name string) (Partition, bool) {
	return PartitionForKey(keyPrefix + name)
}
