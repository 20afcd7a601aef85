package privacy

import (
	"strings"

	"multasync/internal/constants"
)

// MaskPlate masks a license plate showing only the trailing characters.
// Example: "ABC1234" -> "****234". Plates are personal data under the
// municipal data-protection rules, so logs and diagnostics output never
// carry them in full.
func MaskPlate(plate string) string {
	if plate == "" {
		return ""
	}

	visible := constants.DefaultPlateMaskVisible
	if len(plate) <= visible {
		return strings.Repeat("*", len(plate))
	}
	return strings.Repeat("*", len(plate)-visible) + plate[len(plate)-visible:]
}

// MaskOfficerID masks an officer identifier.
// Example: "agente-12345" -> "********2345".
func MaskOfficerID(officerID string) string {
	return maskString(officerID, constants.DefaultIDMaskVisible)
}

// MaskFolio keeps the folio prefix readable and masks the timestamp
// part. Example: "MUL-LX2ABCD" -> "MUL-***BCD".
func MaskFolio(folio string) string {
	if folio == "" {
		return ""
	}

	if strings.HasPrefix(folio, constants.FolioPrefix) {
		return constants.FolioPrefix + maskString(folio[len(constants.FolioPrefix):], constants.DefaultPlateMaskVisible)
	}
	return maskString(folio, constants.DefaultPlateMaskVisible)
}

func maskString(s string, visible int) string {
	if s == "" {
		return ""
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}
