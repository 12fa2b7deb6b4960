// Package privacy scrubs protected health information from strings and
// structured data before it reaches logs, audit records, or error bodies.
//
// Redaction is pattern based and intentionally aggressive: a false positive
// costs readability, a false negative is a reportable disclosure. All
// placeholder tokens are digit-free and lowercase-free so every redaction
// function is idempotent (redact(redact(x)) == redact(x)).
package privacy

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Context selects how aggressive string redaction is.
type Context string

const (
	// ContextGeneral redacts identifiers with unambiguous shapes: emails,
	// phone numbers, SSNs, carrier tracking numbers.
	ContextGeneral Context = "general"

	// ContextPatient additionally redacts name-shaped and street-address-shaped
	// text. Use for any payload that may describe a patient.
	ContextPatient Context = "patient"

	// ContextMedical is equivalent to ContextPatient; kept distinct so call
	// sites read naturally for clinical payloads.
	ContextMedical Context = "medical"
)

// Placeholder tokens substituted for matched PHI.
const (
	placeholderEmail    = "[REDACTED-EMAIL]"
	placeholderPhone    = "[REDACTED-PHONE]"
	placeholderSSN      = "[REDACTED-SSN]"
	placeholderTracking = "[REDACTED-TRACKING]"
	placeholderName     = "[REDACTED-NAME]"
	placeholderAddress  = "[REDACTED-ADDRESS]"
	placeholderValue    = "[REDACTED]"
)

// AllowedEmailDomains lists domains whose addresses are operational, not
// patient identifiers, and pass through unredacted.
var AllowedEmailDomains = []string{
	"telehealthcrm.com",
	"example.com",
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phonePattern = regexp.MustCompile(`(\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]?\d{4}\b`)

	// Carrier tracking shapes: UPS 1Z + 16 alphanumerics, USPS 22-26 digit
	// barcodes starting 92-95, FedEx 12 or 15 digit runs.
	upsPattern   = regexp.MustCompile(`\b1Z[0-9A-Z]{16}\b`)
	uspsPattern  = regexp.MustCompile(`\b9[2-5]\d{20,24}\b`)
	fedexPattern = regexp.MustCompile(`\b(\d{15}|\d{12})\b`)

	// Name shapes: honorific-led, or two capitalized words. Only applied in
	// patient/medical context because the latter matches ordinary prose.
	honorificNamePattern = regexp.MustCompile(`\b(Mr|Mrs|Ms|Dr)\.?\s+[A-Z][a-z]+(\s+[A-Z][a-z]+)?`)
	fullNamePattern      = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)

	streetAddressPattern = regexp.MustCompile(`\b\d+\s+[A-Za-z0-9.\s]{2,40}?\s(Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Way)\b\.?`)
)

// sensitiveKeys are object keys whose values are replaced wholesale,
// regardless of shape. Matched case-insensitively by substring.
var sensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"ssn",
	"social_security",
	"card_number",
	"cardnumber",
	"cvv",
	"pin",
	"authorization",
	"api_key",
	"apikey",
	"private_key",
	"dob",
	"date_of_birth",
}

// RedactString substitutes PHI-shaped substrings with placeholder tokens.
// Safe to call repeatedly; placeholders never re-match any pattern.
func RedactString(input string, ctx Context) string {
	if input == "" {
		return input
	}

	out := emailPattern.ReplaceAllStringFunc(input, func(match string) string {
		if emailDomainAllowed(match) {
			return match
		}
		return placeholderEmail
	})

	// SSN before phone: both are digit shapes and the SSN form is stricter.
	out = ssnPattern.ReplaceAllString(out, placeholderSSN)
	out = upsPattern.ReplaceAllString(out, placeholderTracking)
	out = uspsPattern.ReplaceAllString(out, placeholderTracking)
	out = phonePattern.ReplaceAllString(out, placeholderPhone)
	out = fedexPattern.ReplaceAllString(out, placeholderTracking)

	if ctx == ContextPatient || ctx == ContextMedical {
		out = streetAddressPattern.ReplaceAllString(out, placeholderAddress)
		out = honorificNamePattern.ReplaceAllString(out, placeholderName)
		out = fullNamePattern.ReplaceAllString(out, placeholderName)
	}

	return out
}

// RedactObject deep-copies v with every sensitive-keyed field replaced
// wholesale and every other string leaf passed through RedactString.
// Arbitrary structs are handled by a JSON round trip; the input is never
// mutated. A nil input stays nil.
func RedactObject(v any, ctx Context) any {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case map[string]any, []any, string:
		return redactValue(v, ctx)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		// Unserializable values cannot be safely inspected; drop them.
		return placeholderValue
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return placeholderValue
	}
	return redactValue(decoded, ctx)
}

func redactValue(v any, ctx Context) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if isSensitiveKey(k) {
				out[k] = placeholderValue
				continue
			}
			out[k] = redactValue(child, ctx)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = redactValue(child, ctx)
		}
		return out
	case string:
		return RedactString(val, ctx)
	default:
		return val
	}
}

// ContainsPHI reports whether input matches any PHI pattern, without mutation.
// Name/address shapes are excluded: too ambiguous for boolean detection.
func ContainsPHI(input string) bool {
	if input == "" {
		return false
	}
	for _, match := range emailPattern.FindAllString(input, -1) {
		if !emailDomainAllowed(match) {
			return true
		}
	}
	return ssnPattern.MatchString(input) ||
		phonePattern.MatchString(input) ||
		upsPattern.MatchString(input) ||
		uspsPattern.MatchString(input) ||
		fedexPattern.MatchString(input)
}

// ErrPHIDetected is returned by ValidateNoPHI when data still carries
// redactable content.
var ErrPHIDetected = errors.New("PHI detected")

// ValidateNoPHI verifies data is already clean: it redacts a copy and flags
// any difference. Intended for tests and monitoring probes on data that is
// about to be persisted or exported.
func ValidateNoPHI(data any) error {
	original, err := json.Marshal(data)
	if err != nil {
		return err
	}
	redacted, err := json.Marshal(RedactObject(data, ContextGeneral))
	if err != nil {
		return err
	}
	if string(original) != string(redacted) {
		return ErrPHIDetected
	}
	return nil
}

// AnonymizeIP truncates an IP for logging: IPv4 keeps the /24, IPv6 keeps the
// first two groups. Rate-limit and audit logs use this so source addresses
// are correlatable without being identifying.
func AnonymizeIP(ip string) string {
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 2 {
			return parts[0] + ":" + parts[1] + "::/32"
		}
		return ip
	}
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return strings.Join(parts[:3], ".") + ".0/24"
	}
	return ip
}

func emailDomainAllowed(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range AllowedEmailDomains {
		if domain == allowed {
			return true
		}
	}
	return false
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
