package domain

import "time"

// Role is the dashboard a user belongs to.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// User is a registered account. Role-specific attributes are optional and only
// populated for the matching role.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	IsActive     bool      `json:"isActive"`

	// citizen
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	NationalID string `json:"nationalId,omitempty"`

	// company
	OrganizationName   string `json:"organizationName,omitempty"`
	OrganizationType   string `json:"organizationType,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	ContactPerson      string `json:"contactPerson,omitempty"`
	Address            string `json:"address,omitempty"`
	Website            string `json:"website,omitempty"`

	// admin
	Department      string `json:"department,omitempty"`
	EmploymentID    string `json:"employmentId,omitempty"`
	PermissionLevel string `json:"permissionLevel,omitempty"`
}

// DisplayName is the name snapshotted onto requests.
func (u User) DisplayName() string {
	switch {
	case u.Role == RoleCompany && u.OrganizationName != "":
		return u.OrganizationName
	case u.FirstName != "" || u.LastName != "":
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

// RequestType is the data subject right being exercised.
type RequestType string

const (
	RequestAccess RequestType = "access"
	RequestDelete RequestType = "delete"
)

func (t RequestType) Valid() bool { return t == RequestAccess || t == RequestDelete }

// RequestStatus is the state of a DataRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Priority of a DataRequest.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

func (p Priority) Valid() bool { return p == PriorityHigh || p == PriorityNormal }

// DataRequest is a citizen's demand that a company grant access to, or delete,
// personal data. CitizenName and CompanyName are snapshots taken at creation.
type DataRequest struct {
	ID              string        `json:"id"`
	CitizenID       string        `json:"citizenId"`
	CompanyID       string        `json:"companyId"`
	CitizenName     string        `json:"citizenName"`
	CompanyName     string        `json:"companyName"`
	Type            RequestType   `json:"type"`
	Status          RequestStatus `json:"status"`
	Priority        Priority      `json:"priority"`
	Date            time.Time     `json:"date"`
	Description     string        `json:"description,omitempty"`
	ResponseMessage string        `json:"responseMessage,omitempty"`
	ResponseDate    *time.Time    `json:"responseDate,omitempty"`
}

// NotificationType classifies a Notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
)

type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	Role        Role             `json:"role"`
	Message     string           `json:"message"`
	Timestamp   time.Time        `json:"timestamp"`
	Read        bool             `json:"read"`
	Type        NotificationType `json:"type"`
}

// AlertType classifies an Alert.
type AlertType string

const (
	AlertBreach  AlertType = "breach"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)

type Alert struct {
	ID        string    `json:"id"`
	CitizenID string    `json:"citizenId"`
	Message   string    `json:"message"`
	Type      AlertType `json:"type"`
	Date      time.Time `json:"date"`
	Resolved  bool      `json:"resolved"`
}

// ComplianceItem is a company's checklist. len(Items) always equals
// len(ComplianceRules).
type ComplianceItem struct {
	CompanyID   string    `json:"companyId"`
	Items       []bool    `json:"items"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// UploadType classifies an Upload.
type UploadType string

const (
	UploadPrivacyPolicy UploadType = "privacy_policy"
	UploadIDCard        UploadType = "id_card"
	UploadDocument      UploadType = "document"
)

func (t UploadType) Valid() bool {
	switch t {
	case UploadPrivacyPolicy, UploadIDCard, UploadDocument:
		return true
	}
	return false
}

// Upload records file metadata only; contents are never stored.
type Upload struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	FileName   string     `json:"fileName"`
	Type       UploadType `json:"type"`
	UploadDate time.Time  `json:"uploadDate"`
}

// ActivityType classifies an ActivityLog entry.
type ActivityType string

const (
	ActivityRequest      ActivityType = "request"
	ActivityResponse     ActivityType = "response"
	ActivityUpload       ActivityType = "upload"
	ActivityLogin        ActivityType = "login"
	ActivityNotification ActivityType = "notification"
)

type ActivityLog struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Action    string       `json:"action"`
	Details   string       `json:"details"`
	Timestamp time.Time    `json:"timestamp"`
	Type      ActivityType `json:"type"`
}

// ChatMessage is one entry of a request's thread.
type ChatMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	SenderRole Role      `json:"senderRole"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type AdminNote struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"adminId"`
	TargetUserID string    `json:"targetUserId"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}
