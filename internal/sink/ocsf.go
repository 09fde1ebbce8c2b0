package sink

import (
	"github.com/telhawk-systems/authsim/internal/models"
)

// OCSF authentication class and the values used for login events.
const (
	ocsfClassUID      = 3002
	ocsfCategoryUID   = 3
	ocsfActivityLogon = 1
	ocsfStatusSuccess = 1
	ocsfStatusFailure = 2

	productName    = "authsim"
	productVendor  = "TelHawk"
	productVersion = "1.0.0"

	// AttackTag marks events that were produced by an injected attack.
	AttackTag = "attack-simulation"
)

// statusDetail maps a failure reason to a human readable OCSF status_detail.
func statusDetail(r models.FailureReason) string {
	switch r {
	case models.ReasonAccountLocked:
		return "Account locked"
	case models.ReasonWrongUsername:
		return "Unknown user"
	case models.ReasonWrongPassword:
		return "Invalid credentials"
	default:
		return ""
	}
}

// AuthEvent renders rec as an OCSF Authentication (3002) logon event.
func AuthEvent(runID string, rec models.LogRecord) map[string]interface{} {
	status, statusID, severity := "Success", ocsfStatusSuccess, 1
	if !rec.Success {
		status, statusID, severity = "Failure", ocsfStatusFailure, 3
	}

	event := map[string]interface{}{
		"class_uid":     ocsfClassUID,
		"class_name":    "Authentication",
		"category_uid":  ocsfCategoryUID,
		"activity_id":   ocsfActivityLogon,
		"activity_name": "Logon",
		"type_uid":      ocsfClassUID*100 + ocsfActivityLogon,
		"time":          rec.Time.UnixMilli(),
		"severity_id":   severity,
		"status":        status,
		"status_id":     statusID,
		"user": map[string]interface{}{
			"name": rec.Username,
		},
		"src_endpoint": map[string]interface{}{
			"ip": rec.SourceIP,
		},
		"metadata": map[string]interface{}{
			"correlation_uid": runID,
			"product": map[string]interface{}{
				"vendor_name": productVendor,
				"name":        productName,
				"version":     productVersion,
			},
		},
	}

	if !rec.Success {
		event["status_detail"] = statusDetail(rec.FailureReason)
		event["status_code"] = rec.FailureReason.String()
	}
	if rec.Attack {
		event["metadata"].(map[string]interface{})["labels"] = []string{AttackTag}
	}

	return event
}
