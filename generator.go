package detval

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// referenceTime anchors all generated timestamps. Event times are offsets
// from this instant so two runs with the same seed emit identical bytes.
var referenceTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

var maliciousDomains = []string{
	"cdn-delivery.xyz",
	"update-check.top",
	"secure-login.icu",
	"files-share.club",
	"api-metrics.pw",
}

var benignDomains = []string{
	"update.microsoft.com",
	"clients4.google.com",
	"cdn.office.net",
	"api.github.com",
	"slack.com",
}

// Generator produces one slice of events per category. TelemetryGenerator
// satisfies it with not-implemented hooks so scenario generators only
// override the categories they can honestly populate.
type Generator interface {
	TruePositives(count int) ([]SyntheticEvent, error)
	TrueNegatives(count int) ([]SyntheticEvent, error)
	FPCandidates(count int) ([]SyntheticEvent, error)
	EvasionSamples(count int) ([]SyntheticEvent, error)
}

// TelemetryGenerator holds the seeded randomness shared by every category
// hook. All entropy flows through rng and faker, nothing reads the clock.
type TelemetryGenerator struct {
	rng     *rand.Rand
	faker   *gofakeit.Faker
	seed    int64
	counter int
}

// NewTelemetryGenerator builds a generator whose output is fully determined
// by seed
func NewTelemetryGenerator(seed int64) *TelemetryGenerator {
	return &TelemetryGenerator{
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
		seed:  seed,
	}
}

// Seed reports the seed the generator was built with
func (g *TelemetryGenerator) Seed() int64 { return g.seed }

func (g *TelemetryGenerator) nextID() string {
	g.counter++
	return fmt.Sprintf("EVT-%04d", g.counter)
}

func (g *TelemetryGenerator) timestamp() string {
	offset := time.Duration(g.rng.Intn(72*3600)) * time.Second
	return referenceTime.Add(-offset).Format(time.RFC3339)
}

func (g *TelemetryGenerator) hostname() string {
	return fmt.Sprintf("WS-%s-%02d", strings.ToUpper(g.faker.LetterN(4)), g.rng.Intn(100))
}

func (g *TelemetryGenerator) username() string {
	return strings.ToLower(g.faker.Username())
}

func (g *TelemetryGenerator) pid() int {
	return 1000 + g.rng.Intn(60000)
}

func (g *TelemetryGenerator) guid() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}

func (g *TelemetryGenerator) internalIP() string {
	return fmt.Sprintf("10.%d.%d.%d", g.rng.Intn(256), g.rng.Intn(256), 1+g.rng.Intn(254))
}

func (g *TelemetryGenerator) externalIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", 20+g.rng.Intn(180), g.rng.Intn(256), g.rng.Intn(256), 1+g.rng.Intn(254))
}

func (g *TelemetryGenerator) domain(malicious bool) string {
	if malicious {
		return maliciousDomains[g.rng.Intn(len(maliciousDomains))]
	}
	return benignDomains[g.rng.Intn(len(benignDomains))]
}

func (g *TelemetryGenerator) sha256() string {
	const hex = "0123456789abcdef"
	b := make([]byte, 64)
	for i := range b {
		b[i] = hex[g.rng.Intn(16)]
	}
	return string(b)
}

// TruePositives implements Generator
func (g *TelemetryGenerator) TruePositives(count int) ([]SyntheticEvent, error) {
	return nil, ErrNotImplemented{Method: "TruePositives"}
}

// TrueNegatives implements Generator
func (g *TelemetryGenerator) TrueNegatives(count int) ([]SyntheticEvent, error) {
	return nil, ErrNotImplemented{Method: "TrueNegatives"}
}

// FPCandidates implements Generator
func (g *TelemetryGenerator) FPCandidates(count int) ([]SyntheticEvent, error) {
	return nil, ErrNotImplemented{Method: "FPCandidates"}
}

// EvasionSamples implements Generator
func (g *TelemetryGenerator) EvasionSamples(count int) ([]SyntheticEvent, error) {
	return nil, ErrNotImplemented{Method: "EvasionSamples"}
}

// GenerateAll collects every category from g and shuffles the combined slice
// with the generator's own randomness so interleaving is reproducible.
// The result holds exactly tp+tn+fp+evasion events; a hook error, including
// ErrNotImplemented from a generator that does not provide the category,
// aborts so missing overrides surface at wiring time.
func GenerateAll(g Generator, tg *TelemetryGenerator, tp, tn, fp, evasion int) ([]SyntheticEvent, error) {
	type hook struct {
		fn    func(int) ([]SyntheticEvent, error)
		count int
	}
	hooks := []hook{
		{g.TruePositives, tp},
		{g.TrueNegatives, tn},
		{g.FPCandidates, fp},
		{g.EvasionSamples, evasion},
	}
	var all []SyntheticEvent
	for _, h := range hooks {
		if h.count <= 0 {
			continue
		}
		events, err := h.fn(h.count)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	tg.rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all, nil
}

// logTemplate is one base event shape keyed by log source vocabulary
type logTemplate struct {
	keywords []string
	build    func(g *TelemetryGenerator) map[string]interface{}
}

var templates = []logTemplate{
	{
		keywords: []string{"process", "sysmon", "process_creation", "windows"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"EventID":          1,
				"UtcTime":          g.timestamp(),
				"Computer":         g.hostname(),
				"User":             g.username(),
				"ProcessId":        g.pid(),
				"ProcessGuid":      g.guid(),
				"Image":            `C:\Windows\System32\svchost.exe`,
				"CommandLine":      `C:\Windows\System32\svchost.exe -k netsvcs`,
				"ParentImage":      `C:\Windows\System32\services.exe`,
				"ParentProcessId":  g.pid(),
				"OriginalFileName": "svchost.exe",
				"IntegrityLevel":   "System",
				"Hashes":           "SHA256=" + g.sha256(),
			}
		},
	},
	{
		keywords: []string{"network", "network_connection", "tcp", "connection"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"EventID":         3,
				"UtcTime":         g.timestamp(),
				"Computer":        g.hostname(),
				"Image":           `C:\Program Files\Mozilla Firefox\firefox.exe`,
				"SourceIp":        g.internalIP(),
				"SourcePort":      32768 + g.rng.Intn(28000),
				"DestinationIp":   g.externalIP(),
				"DestinationPort": 443,
				"Protocol":        "tcp",
				"Initiated":       true,
			}
		},
	},
	{
		keywords: []string{"dns", "dns_query", "resolver"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"EventID":      22,
				"UtcTime":      g.timestamp(),
				"Computer":     g.hostname(),
				"Image":        `C:\Windows\System32\svchost.exe`,
				"QueryName":    g.domain(false),
				"QueryStatus":  "0",
				"QueryResults": g.externalIP(),
			}
		},
	},
	{
		keywords: []string{"file", "file_event", "file_creation"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"EventID":         11,
				"UtcTime":         g.timestamp(),
				"Computer":        g.hostname(),
				"Image":           `C:\Windows\explorer.exe`,
				"TargetFilename":  `C:\Users\` + g.username() + `\Documents\report.docx`,
				"CreationUtcTime": g.timestamp(),
			}
		},
	},
	{
		keywords: []string{"logon", "authentication", "security", "login"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"EventID":                   4624,
				"TimeCreated":               g.timestamp(),
				"Computer":                  g.hostname(),
				"TargetUserName":            g.username(),
				"TargetDomainName":          "CORP",
				"LogonType":                 g.rng.Intn(3) + 2,
				"IpAddress":                 g.internalIP(),
				"AuthenticationPackageName": "Kerberos",
			}
		},
	},
	{
		keywords: []string{"cloud", "cloudtrail", "aws", "audit"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"eventVersion":    "1.09",
				"eventTime":       g.timestamp(),
				"eventSource":     "iam.amazonaws.com",
				"eventName":       "ListUsers",
				"awsRegion":       "us-east-1",
				"sourceIPAddress": g.externalIP(),
				"userIdentity": map[string]interface{}{
					"type":      "IAMUser",
					"userName":  g.username(),
					"accountId": fmt.Sprintf("%012d", g.rng.Intn(1000000000)),
					"arn":       "arn:aws:iam::123456789012:user/" + g.username(),
				},
				"requestParameters": map[string]interface{}{},
			}
		},
	},
	{
		keywords: []string{"okta", "saas", "eventhook", "idp"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"eventType": "user.session.start",
				"published": g.timestamp(),
				"severity":  "INFO",
				"actor": map[string]interface{}{
					"id":          g.guid(),
					"type":        "User",
					"alternateId": g.username() + "@corp.example.com",
					"displayName": g.faker.Name(),
				},
				"client": map[string]interface{}{
					"ipAddress": g.externalIP(),
					"userAgent": map[string]interface{}{
						"rawUserAgent": g.faker.UserAgent(),
					},
				},
				"outcome": map[string]interface{}{
					"result": "SUCCESS",
				},
			}
		},
	},
	{
		keywords: []string{"edr", "endpoint", "sentinel", "s1"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"event.time": g.timestamp(),
				"endpoint": map[string]interface{}{
					"name": g.hostname(),
					"os":   "windows",
				},
				"src": map[string]interface{}{
					"process": map[string]interface{}{
						"name":         "svchost.exe",
						"image":        map[string]interface{}{"path": `C:\Windows\System32\svchost.exe`},
						"cmdline":      `C:\Windows\System32\svchost.exe -k netsvcs`,
						"command_line": `C:\Windows\System32\svchost.exe -k netsvcs`,
						"pid":          g.pid(),
						"user":         g.username(),
						"parent": map[string]interface{}{
							"name": "services.exe",
						},
					},
				},
			}
		},
	},
	{
		keywords: []string{"email", "smtp", "phishing", "mail"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"timestamp":     g.timestamp(),
				"sender":        g.username() + "@" + g.faker.DomainName(),
				"recipient":     g.username() + "@corp.example.com",
				"subject":       g.faker.Sentence(5),
				"attachment":    "invoice.pdf",
				"url_count":     g.rng.Intn(4),
				"spf_result":    "pass",
				"dkim_result":   "pass",
				"gateway_score": g.rng.Intn(40),
			}
		},
	},
	{
		keywords: []string{"firewall", "panos", "traffic", "netflow"},
		build: func(g *TelemetryGenerator) map[string]interface{} {
			return map[string]interface{}{
				"receive_time": g.timestamp(),
				"src":          g.internalIP(),
				"dst":          g.externalIP(),
				"sport":        32768 + g.rng.Intn(28000),
				"dport":        443,
				"proto":        "tcp",
				"action":       "allow",
				"app":          "ssl",
				"rule":         "outbound-web",
				"bytes":        g.rng.Intn(500000),
				"zone.src":     "trust",
				"zone.dst":     "untrust",
			}
		},
	},
}

// templateFor picks the base event shape whose vocabulary matches the log
// source. Unknown sources get the process-creation shape, the most common
// ground for detection content.
func templateFor(logSource string) logTemplate {
	lower := strings.ToLower(logSource)
	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	return templates[0]
}

// baseEvent builds a fresh benign event for the given log source
func (g *TelemetryGenerator) baseEvent(logSource string) map[string]interface{} {
	return templateFor(logSource).build(g)
}
