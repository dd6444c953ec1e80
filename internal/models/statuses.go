package models

type GigStatus string
type ApplicationStatus string
type ShowcaseStatus string
type Visibility string
type ApprovalAction string
type CompensationType string
type SubscriptionTier string

const (
	GigStatusDraft              GigStatus = "DRAFT"
	GigStatusPublished          GigStatus = "PUBLISHED"
	GigStatusApplicationsClosed GigStatus = "APPLICATIONS_CLOSED"
	GigStatusBooked             GigStatus = "BOOKED"
	GigStatusCompleted          GigStatus = "COMPLETED"
	GigStatusCancelled          GigStatus = "CANCELLED"

	ApplicationStatusPending     ApplicationStatus = "PENDING"
	ApplicationStatusShortlisted ApplicationStatus = "SHORTLISTED"
	ApplicationStatusAccepted    ApplicationStatus = "ACCEPTED"
	ApplicationStatusDeclined    ApplicationStatus = "DECLINED"

	ShowcaseStatusPendingApproval  ShowcaseStatus = "pending_approval"
	ShowcaseStatusApproved         ShowcaseStatus = "approved"
	ShowcaseStatusChangesRequested ShowcaseStatus = "changes_requested"

	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"

	ApprovalActionPending        ApprovalAction = "pending"
	ApprovalActionApprove        ApprovalAction = "approve"
	ApprovalActionRequestChanges ApprovalAction = "request_changes"

	CompensationTFP      CompensationType = "TFP"
	CompensationPaid     CompensationType = "PAID"
	CompensationExpenses CompensationType = "EXPENSES"

	TierFree SubscriptionTier = "free"
	TierPlus SubscriptionTier = "plus"
	TierPro  SubscriptionTier = "pro"
)

func (s GigStatus) IsValid() bool {
	switch s {
	case GigStatusDraft, GigStatusPublished, GigStatusApplicationsClosed,
		GigStatusBooked, GigStatusCompleted, GigStatusCancelled:
		return true
	}
	return false
}

// IsTerminal - из COMPLETED и CANCELLED переходов нет
func (s GigStatus) IsTerminal() bool {
	return s == GigStatusCompleted || s == GigStatusCancelled
}

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusShortlisted,
		ApplicationStatusAccepted, ApplicationStatusDeclined:
		return true
	}
	return false
}

func (a ApprovalAction) IsValid() bool {
	return a == ApprovalActionApprove || a == ApprovalActionRequestChanges
}

func (t CompensationType) IsValid() bool {
	return t == CompensationTFP || t == CompensationPaid || t == CompensationExpenses
}

func (t SubscriptionTier) IsValid() bool {
	return t == TierFree || t == TierPlus || t == TierPro
}
