package validation

import (
	"fmt"
	"math"
	"unicode"

	"crewsignal/internal/constants"
	"crewsignal/internal/errors"
	"crewsignal/internal/models"
)

// ValidateCoordinates checks that a latitude/longitude pair is a real
// position on the globe. NaN and infinities are rejected along with
// out-of-range values.
func ValidateCoordinates(latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) {
		return errors.New(errors.KindInvalidArgument, "latitude must be a finite number")
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) {
		return errors.New(errors.KindInvalidArgument, "longitude must be a finite number")
	}
	if latitude < constants.MinLatitude || latitude > constants.MaxLatitude {
		return errors.New(errors.KindInvalidArgument,
			fmt.Sprintf("latitude must be between %.0f and %.0f", constants.MinLatitude, constants.MaxLatitude))
	}
	if longitude < constants.MinLongitude || longitude > constants.MaxLongitude {
		return errors.New(errors.KindInvalidArgument,
			fmt.Sprintf("longitude must be between %.0f and %.0f", constants.MinLongitude, constants.MaxLongitude))
	}
	return nil
}

// ValidateRadius checks that a signal radius is a positive number.
func ValidateRadius(radiusMeters float64) error {
	if math.IsNaN(radiusMeters) || math.IsInf(radiusMeters, 0) {
		return errors.New(errors.KindInvalidArgument, "radius must be a finite number")
	}
	if radiusMeters <= 0 {
		return errors.New(errors.KindInvalidArgument, "radius must be positive")
	}
	return nil
}

// ValidateMessage checks the optional free-text message bound.
func ValidateMessage(message string) error {
	if len(message) > constants.MaxMessageLength {
		return errors.New(errors.KindInvalidArgument,
			fmt.Sprintf("message too long (max %d characters)", constants.MaxMessageLength))
	}
	for _, char := range message {
		if char == '\x00' {
			return errors.New(errors.KindInvalidArgument, "message contains invalid characters")
		}
	}
	return nil
}

// ValidateTargetType checks the target type and its ID list. Non-all
// target types require at least one target ID.
func ValidateTargetType(targetType models.TargetType, targetIDs []string) error {
	switch targetType {
	case models.TargetAll:
		return nil
	case models.TargetCrews, models.TargetContacts:
		if len(targetIDs) == 0 {
			return errors.New(errors.KindInvalidArgument,
				fmt.Sprintf("target type %q requires at least one target ID", targetType))
		}
		return nil
	default:
		return errors.New(errors.KindInvalidArgument, fmt.Sprintf("unknown target type %q", targetType))
	}
}

// ValidateUserID checks a user ID for emptiness and control characters.
func ValidateUserID(userID string) error {
	if userID == "" {
		return errors.New(errors.KindInvalidArgument, "user ID cannot be empty")
	}
	if len(userID) > 128 {
		return errors.New(errors.KindInvalidArgument, "user ID too long (max 128 characters)")
	}
	for _, char := range userID {
		if unicode.IsControl(char) || unicode.IsSpace(char) {
			return errors.New(errors.KindInvalidArgument, "user ID contains invalid characters")
		}
	}
	return nil
}
