package sanitize

import "strconv"

// Class is the confidence class of a secret pattern. Patterns run in class
// order, and in table order within a class.
type Class int

const (
	Explicit   Class = iota // vendor-prefixed keys
	Structural              // format-based: JWT, PEM, connection strings, key=value
	Heuristic               // high-entropy fallback
)

func (c Class) String() string {
	switch c {
	case Explicit:
		return "explicit"
	case Structural:
		return "structural"
	case Heuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// Pattern is one row of the redaction table.
//
// Prefix and Suffix are regexp expansion templates kept around the
// replacement label, e.g. "${1}" keeps a captured key name so that
// "api_key=abc..." becomes "api_key=[REDACTED-API-KEY]".
type Pattern struct {
	Name   string
	Expr   string
	Class  Class
	Label  string
	Prefix string
	Suffix string

	// Accept filters candidate matches; nil accepts all.
	Accept func(match string) bool
}

// Replacement returns the literal label text for p.
func (p Pattern) Replacement() string {
	return "[REDACTED-" + p.Label + "]"
}

// assignment builds a key=value rule that redacts only the value.
func assignment(name, key string, minLen int, label string) Pattern {
	return Pattern{
		Name:   name,
		Expr:   `(?i)(` + key + `["']?\s*[=:]\s*["']?)([^\s"'\[\]]{` + strconv.Itoa(minLen) + `,})`,
		Class:  Structural,
		Label:  label,
		Prefix: "${1}",
	}
}

// DefaultPatterns returns the built-in table, most specific first. The
// entropy fallback is appended by New from its EntropyConfig.
func DefaultPatterns() []Pattern {
	return []Pattern{
		// LLM providers. Anthropic and OpenRouter run before the generic sk- rule.
		{Name: "anthropic", Expr: `sk-ant-[A-Za-z0-9_-]{32,}`, Class: Explicit, Label: "ANTHROPIC-API-KEY"},
		{Name: "openrouter", Expr: `sk-or-(?:v1-)?[A-Za-z0-9]{32,}`, Class: Explicit, Label: "OPENROUTER-API-KEY"},
		{Name: "openai", Expr: `\bsk-(?:proj-)?[A-Za-z0-9_-]{30,}`, Class: Explicit, Label: "OPENAI-API-KEY"},
		{Name: "composio", Expr: `\bak-[A-Za-z0-9]{20,}`, Class: Explicit, Label: "COMPOSIO-API-KEY"},

		// GitHub.
		{Name: "github-pat", Expr: `github_pat_[A-Za-z0-9_]{22,}`, Class: Explicit, Label: "GITHUB-PAT"},
		{Name: "github-token", Expr: `gh[pousr]_[A-Za-z0-9]{20,}`, Class: Explicit, Label: "GITHUB-TOKEN"},

		// AWS.
		{Name: "aws-access", Expr: `AKIA[A-Z0-9]{16}`, Class: Explicit, Label: "AWS-ACCESS-KEY"},
		{Name: "aws-session", Expr: `ASIA[A-Z0-9]{16}`, Class: Explicit, Label: "AWS-SESSION-KEY"},

		// Chat platforms.
		{Name: "telegram", Expr: `\b\d{9,10}:[A-Za-z0-9_-]{35}`, Class: Explicit, Label: "TELEGRAM-BOT-TOKEN"},
		{Name: "slack", Expr: `xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[A-Za-z0-9-]*`, Class: Explicit, Label: "SLACK-TOKEN"},
		{Name: "discord", Expr: `\b[A-Za-z0-9_-]{24}\.[A-Za-z0-9_-]{6}\.[A-Za-z0-9_-]{27}\b`, Class: Explicit, Label: "DISCORD-BOT-TOKEN"},

		// Integrations.
		{Name: "notion", Expr: `secret_[A-Za-z0-9]{32,}`, Class: Explicit, Label: "NOTION-SECRET"},
		{Name: "google", Expr: `AIza[0-9A-Za-z_-]{35}`, Class: Explicit, Label: "GOOGLE-API-KEY"},
		{Name: "stripe-live", Expr: `sk_live_[0-9A-Za-z]{24,}`, Class: Explicit, Label: "STRIPE-LIVE-KEY"},
		{Name: "stripe-test", Expr: `sk_test_[0-9A-Za-z]{24,}`, Class: Explicit, Label: "STRIPE-TEST-KEY"},
		{Name: "stripe-pk-live", Expr: `pk_live_[0-9A-Za-z]{24,}`, Class: Explicit, Label: "STRIPE-PUBLISHABLE-KEY"},
		{Name: "stripe-pk-test", Expr: `pk_test_[0-9A-Za-z]{24,}`, Class: Explicit, Label: "STRIPE-TEST-PUBLISHABLE-KEY"},
		{Name: "brave", Expr: `\bBSA[0-9A-Za-z_-]{32,}`, Class: Explicit, Label: "BRAVE-API-KEY"},
		{Name: "tavily", Expr: `tvly-[A-Za-z0-9]{32,}`, Class: Explicit, Label: "TAVILY-API-KEY"},
		{Name: "serpapi", Expr: `serp-[0-9a-z]{32,}`, Class: Explicit, Label: "SERPAPI-KEY"},

		// Structural detectors.
		{Name: "jwt", Expr: `eyJ[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{5,}`, Class: Structural, Label: "JWT"},
		{Name: "pem-block", Expr: `(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`, Class: Structural, Label: "PRIVATE-KEY-BLOCK"},
		{Name: "pem-header", Expr: `-----BEGIN (?:RSA |DSA |EC |OPENSSH |ENCRYPTED )?PRIVATE KEY-----`, Class: Structural, Label: "SSH-PRIVATE-KEY"},
		{Name: "ssh-public", Expr: `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/]{30,}={0,3}`, Class: Structural, Label: "SSH-PUBLIC-KEY"},
		{
			Name:   "dsn",
			Expr:   `((?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|rediss|amqp)://)[^:@\s/]+:[^@\s/]+(@\S+)`,
			Class:  Structural,
			Label:  "CONNECTION-STRING",
			Prefix: "${1}",
			Suffix: "${2}",
		},
		{
			Name:   "url-credentials",
			Expr:   `(\b[A-Za-z][A-Za-z0-9+.-]*://)[^:@\s/]+:[^@\s/]+(@\S+)`,
			Class:  Structural,
			Label:  "CONNECTION-STRING",
			Prefix: "${1}",
			Suffix: "${2}",
		},
		{Name: "hex-64", Expr: `\b[0-9a-f]{64}\b`, Class: Structural, Label: "HEX-TOKEN-64"},
		{Name: "hex-32", Expr: `\b[0-9a-f]{32}\b`, Class: Structural, Label: "HEX-TOKEN-32"},

		// Assignments keep the key for context and redact the value.
		assignment("api-key", `\w*api\w*[_-]?\w*key\w*`, 16, "API-KEY"),
		assignment("secret-key", `\w*secret\w*[_-]?\w*key\w*`, 16, "SECRET"),
		assignment("access-token", `\w*access\w*[_-]?\w*token\w*`, 16, "ACCESS-TOKEN"),
		assignment("auth-token", `\w*auth\w*[_-]?\w*token\w*`, 16, "AUTH-TOKEN"),
		assignment("api-token", `\w*api\w*[_-]?\w*token\w*`, 16, "API-TOKEN"),
		{
			Name:   "bearer",
			Expr:   `(?i)(bearer\s+)([^\s"'\[\]]{16,})`,
			Class:  Structural,
			Label:  "BEARER-TOKEN",
			Prefix: "${1}",
		},
		assignment("token", `\w*token\w*`, 16, "TOKEN"),
		assignment("password", `(?:password|passwd|pwd)`, 8, "PASSWORD"),
		assignment("private-key", `(?:private[_-]?key|privkey)`, 20, "PRIVATE-KEY"),
		{Name: "env-var", Expr: `\$[A-Z_]*(?:KEY|SECRET|TOKEN|PASSWORD|CREDENTIAL)[A-Z_]*\b`, Class: Structural, Label: "ENV-VAR"},
		{Name: "env-var-braced", Expr: `\$\{[A-Z_]*(?:KEY|SECRET|TOKEN|PASSWORD|CREDENTIAL)[A-Z_]*\}`, Class: Structural, Label: "ENV-VAR"},
	}
}
