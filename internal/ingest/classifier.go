package ingest

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

// signature flags recorded on classification results.
const (
	FlagDangerousExtension    = "dangerous-extension"
	FlagDeniedMime            = "denied-mime"
	FlagUnverifiableSignature = "unverifiable-signature"
	FlagTypeNotAllowed        = "type-not-allowed"
	FlagSignatureMismatch     = "signature-mismatch"
	FlagSizeExceeded          = "size-exceeded"
	FlagSuspicious            = "suspicious"
)

// sniffLen bounds how much of the payload the classifier inspects so large
// files never block signature inspection.
const sniffLen = 4096

// Classification is the structured outcome of content-security inspection.
// Expected rejections are results with Accepted=false, never errors.
type Classification struct {
	Accepted          bool
	DetectedMime      string
	DetectedExtension string
	SecurityFlags     []string
	Message           string
}

// ClassifierPolicy is the explicit configuration of the classifier: deny and
// allow lists, per-type ceilings and the scan/quarantine toggles. Constructed
// once at wiring time.
type ClassifierPolicy struct {
	DeniedExtensions     map[string]bool
	DeniedMimes          map[string]bool
	AllowedMimes         map[string]bool
	TypeCeilings         map[string]int64 // by detected mime
	GlobalMaxSize        int64
	EquivalentMimes      map[string][]string // declared -> acceptable detected
	EncryptionRequired   map[string]bool
	ThumbnailPermitted   map[string]bool
	ContentScanEnabled   bool
	QuarantineSuspicious bool
}

// DefaultPolicy returns the production classification policy with the
// behavioral toggles taken from the upload configuration.
func DefaultPolicy(globalMax int64, scanEnabled, quarantine bool) ClassifierPolicy {
	return ClassifierPolicy{
		DeniedExtensions: map[string]bool{
			".exe": true, ".dll": true, ".bat": true, ".cmd": true, ".com": true,
			".msi": true, ".scr": true, ".sh": true, ".jar": true, ".js": true,
			".vbs": true, ".ps1": true, ".hta": true,
		},
		DeniedMimes: map[string]bool{
			"application/x-msdownload":    true,
			"application/x-executable":    true,
			"application/x-dosexec":       true,
			"application/x-sh":            true,
			"application/x-msdos-program": true,
			"application/java-archive":    true,
			"application/javascript":      true,
			"text/javascript":             true,
			"application/x-shellscript":   true,
		},
		AllowedMimes: map[string]bool{
			"application/pdf":           true,
			"image/png":                 true,
			"image/jpeg":                true,
			"image/gif":                 true,
			"image/webp":                true,
			"application/zip":           true,
			"application/x-ole-storage": true,
			"text/plain":                true,
		},
		TypeCeilings: map[string]int64{
			"application/pdf":           25 << 20,
			"image/png":                 10 << 20,
			"image/jpeg":                10 << 20,
			"image/gif":                 10 << 20,
			"image/webp":                10 << 20,
			"application/zip":           20 << 20,
			"application/x-ole-storage": 20 << 20,
			"text/plain":                5 << 20,
		},
		GlobalMaxSize: globalMax,
		EquivalentMimes: map[string][]string{
			"image/jpg":         {"image/jpeg"},
			"image/pjpeg":       {"image/jpeg"},
			"application/x-pdf": {"application/pdf"},
			"text/csv":          {"text/plain"},
			// Modern office formats are zip containers; legacy ones are OLE.
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {"application/zip"},
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {"application/zip"},
			"application/vnd.openxmlformats-officedocument.presentationml.presentation": {"application/zip"},
			"application/msword":       {"application/x-ole-storage"},
			"application/vnd.ms-excel": {"application/x-ole-storage"},
		},
		EncryptionRequired: map[string]bool{
			"application/pdf":           true,
			"application/zip":           true,
			"application/x-ole-storage": true,
		},
		ThumbnailPermitted: map[string]bool{
			"image/png":       true,
			"image/jpeg":      true,
			"image/gif":       true,
			"image/webp":      true,
			"application/pdf": true,
		},
		ContentScanEnabled:   scanEnabled,
		QuarantineSuspicious: quarantine,
	}
}

// Classifier inspects payloads for binary signatures and active content and
// reconciles declared types against what the bytes actually are.
type Classifier struct {
	policy ClassifierPolicy
}

// NewClassifier creates a Classifier with an explicit policy.
func NewClassifier(policy ClassifierPolicy) *Classifier {
	return &Classifier{policy: policy}
}

func reject(message string, detectedMime, detectedExt string, flags ...string) Classification {
	return Classification{
		Accepted:          false,
		DetectedMime:      detectedMime,
		DetectedExtension: detectedExt,
		SecurityFlags:     flags,
		Message:           message,
	}
}

// Classify runs the full inspection chain. Each step is a hard rejection
// except the active-content scan, whose outcome depends on the quarantine
// policy. Only infrastructure failures return a non-nil error.
func (c *Classifier) Classify(payload []byte, declaredMime, originalName string, declaredSize int64) (Classification, error) {
	declared := normalizeMime(declaredMime)
	ext := strings.ToLower(filepath.Ext(originalName))

	// 1. Extension denylist wins regardless of declared mime.
	if c.policy.DeniedExtensions[ext] {
		return reject(fmt.Sprintf("extension %q is not permitted", ext), "", ext, FlagDangerousExtension), nil
	}

	// 2. Declared mime denylist, regardless of actual content.
	if c.policy.DeniedMimes[declared] {
		return reject(fmt.Sprintf("declared type %q is not permitted", declared), "", ext, FlagDeniedMime), nil
	}

	// 3. Binary signature on a bounded prefix.
	detectedMime, detectedExt, ok := detectSignature(payload)
	if !ok {
		// Fallback rule: unverifiable content is acceptable only when the
		// caller declared a plain-text family type.
		if !isPlainTextFamily(declared) {
			return reject("no recoverable binary signature for declared type "+declared, "", ext, FlagUnverifiableSignature), nil
		}
		detectedMime, detectedExt = "text/plain", ".txt"
	}

	// 4. Detected type allow-list.
	if !c.policy.AllowedMimes[detectedMime] {
		return reject(fmt.Sprintf("detected type %q is not on the allow-list", detectedMime), detectedMime, detectedExt, FlagTypeNotAllowed), nil
	}

	// 5. Declared vs detected reconciliation.
	if !c.mimesReconcile(declared, detectedMime) {
		return reject(
			fmt.Sprintf("declared type %q does not match detected type %q", declared, detectedMime),
			detectedMime, detectedExt, FlagSignatureMismatch,
		), nil
	}

	// 6. Type-specific ceiling on top of the global one.
	ceiling := c.policy.GlobalMaxSize
	if typeCeiling, found := c.policy.TypeCeilings[detectedMime]; found && typeCeiling < ceiling {
		ceiling = typeCeiling
	}
	if declaredSize > ceiling || int64(len(payload)) > ceiling {
		return reject(
			fmt.Sprintf("size exceeds the %d byte ceiling for %s", ceiling, detectedMime),
			detectedMime, detectedExt, FlagSizeExceeded,
		), nil
	}

	// 7. Heuristic active-content scan.
	var flags []string
	message := "accepted"
	if c.policy.ContentScanEnabled {
		if hits := scanActiveContent(payload, detectedMime); len(hits) > 0 {
			flags = append(flags, FlagSuspicious)
			flags = append(flags, hits...)
			if c.policy.QuarantineSuspicious {
				return reject("active-content markers found: "+strings.Join(hits, ", "), detectedMime, detectedExt, flags...), nil
			}
			message = "accepted with suspicious markers: " + strings.Join(hits, ", ")
		}
	}

	return Classification{
		Accepted:          true,
		DetectedMime:      detectedMime,
		DetectedExtension: detectedExt,
		SecurityFlags:     flags,
		Message:           message,
	}, nil
}

// RequiresEncryption answers the downstream at-rest encryption policy lookup.
func (c *Classifier) RequiresEncryption(mime string) bool {
	return c.policy.EncryptionRequired[normalizeMime(mime)]
}

// ThumbnailAllowed answers whether the type may be thumbnailed downstream.
func (c *Classifier) ThumbnailAllowed(mime string) bool {
	return c.policy.ThumbnailPermitted[normalizeMime(mime)]
}

func (c *Classifier) mimesReconcile(declared, detected string) bool {
	if declared == detected {
		return true
	}
	for _, equivalent := range c.policy.EquivalentMimes[declared] {
		if equivalent == detected {
			return true
		}
	}
	return false
}

func normalizeMime(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mime
}

func isPlainTextFamily(mime string) bool {
	switch mime {
	case "text/plain", "text/csv":
		return true
	}
	return false
}

// magicSignature maps a leading byte sequence to a detected type.
type magicSignature struct {
	prefix []byte
	offset int
	mime   string
	ext    string
}

var magicSignatures = []magicSignature{
	{prefix: []byte("%PDF"), mime: "application/pdf", ext: ".pdf"},
	{prefix: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, mime: "image/png", ext: ".png"},
	{prefix: []byte{0xFF, 0xD8, 0xFF}, mime: "image/jpeg", ext: ".jpg"},
	{prefix: []byte("GIF87a"), mime: "image/gif", ext: ".gif"},
	{prefix: []byte("GIF89a"), mime: "image/gif", ext: ".gif"},
	{prefix: []byte("WEBP"), offset: 8, mime: "image/webp", ext: ".webp"},
	{prefix: []byte{'P', 'K', 0x03, 0x04}, mime: "application/zip", ext: ".zip"},
	{prefix: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, mime: "application/x-ole-storage", ext: ".doc"},
	{prefix: []byte{0x4D, 0x5A}, mime: "application/x-dosexec", ext: ".exe"},
	{prefix: []byte{0x7F, 'E', 'L', 'F'}, mime: "application/x-executable", ext: ""},
}

// detectSignature inspects at most sniffLen bytes for a known magic number.
// It reports ok=false when no signature is recoverable.
func detectSignature(payload []byte) (mime, ext string, ok bool) {
	prefix := payload
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}

	for _, sig := range magicSignatures {
		end := sig.offset + len(sig.prefix)
		if len(prefix) >= end && bytes.Equal(prefix[sig.offset:end], sig.prefix) {
			return sig.mime, sig.ext, true
		}
	}

	// http.DetectContentType recognizes textual content on its 512-byte
	// window; anything it calls octet-stream has no recoverable signature.
	detected := normalizeMime(http.DetectContentType(prefix))
	if strings.HasPrefix(detected, "text/") {
		return "text/plain", ".txt", true
	}
	return "", "", false
}

var (
	reScriptTag     = regexp.MustCompile(`(?i)<\s*script`)
	reScriptScheme  = regexp.MustCompile(`(?i)(javascript|vbscript)\s*:`)
	reEventHandler  = regexp.MustCompile(`(?i)\son(load|error|click|mouseover|focus|submit|input)\s*=`)
	reEncodedScript = regexp.MustCompile(`(?i)(%3C|&lt;)\s*script`)
	reHexEscapeRun  = regexp.MustCompile(`(\\x[0-9a-fA-F]{2}){8,}`)
	rePDFScript     = regexp.MustCompile(`/(JavaScript|JS|OpenAction|AA|Launch|EmbeddedFile)\b`)
)

// scanActiveContent scans a bounded text prefix for markers of embedded
// executable behavior and obfuscation. Returns the list of marker names hit.
func scanActiveContent(payload []byte, detectedMime string) []string {
	prefix := payload
	if len(prefix) > sniffLen {
		prefix = prefix[:sniffLen]
	}

	var hits []string
	if reScriptTag.Match(prefix) {
		hits = append(hits, "script-tag")
	}
	if reScriptScheme.Match(prefix) {
		hits = append(hits, "script-url-scheme")
	}
	if reEventHandler.Match(prefix) {
		hits = append(hits, "inline-event-handler")
	}
	if reEncodedScript.Match(prefix) {
		hits = append(hits, "encoded-script-tag")
	}
	if reHexEscapeRun.Match(prefix) {
		hits = append(hits, "hex-escape-run")
	}

	if detectedMime == "application/pdf" && rePDFScript.Match(prefix) {
		hits = append(hits, "pdf-embedded-script")
	}

	if strings.HasPrefix(detectedMime, "text/") {
		if bytes.IndexByte(prefix, 0) >= 0 {
			hits = append(hits, "null-byte")
		}
		if nonASCIIDensity(prefix) > 0.3 {
			hits = append(hits, "abnormal-non-ascii-density")
		}
	}

	return hits
}

func nonASCIIDensity(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var n int
	for _, c := range b {
		if c > 0x7F {
			n++
		}
	}
	return float64(n) / float64(len(b))
}
