package scrape

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hashsha256 "portal-connector/internal/hash/sha256"
)

func TestExtractDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://jobs.example.com/login", "jobs.example.com"},
		{"http://portal.company.cz/dashboard", "portal.company.cz"},
		{"https://jobs.example.com:8443/login", "jobs.example.com:8443"},
		{"not a url", ""},
		{"/relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDomain(tt.rawURL), "ExtractDomain(%q)", tt.rawURL)
	}
}

func TestBuildTaskSkipListRoundTrip(t *testing.T) {
	t.Parallel()

	spec := BuildTask("https://jobs.example.com/login", "user", "pass", "Backend Developer", "",
		[]string{"abc123", "def456"})

	csv, ok := spec.Secrets["skip_hashes_csv"]
	require.True(t, ok, "skip list secret missing")

	got := strings.Split(csv, ",")
	sort.Strings(got)
	assert.Equal(t, []string{"abc123", "def456"}, got)
}

func TestBuildTaskEmptySkipList(t *testing.T) {
	t.Parallel()

	spec := BuildTask("https://jobs.example.com/login", "user", "pass", "Backend Developer", "", nil)
	assert.Equal(t, "", spec.Secrets["skip_hashes_csv"])
}

func TestBuildTaskSecretsSeparateFromInstruction(t *testing.T) {
	t.Parallel()

	spec := BuildTask("https://jobs.example.com/login", "recruiter@example.com", "hunter2", "Backend Developer", "",
		[]string{"abc123"})

	assert.Equal(t, "recruiter@example.com", spec.Secrets["username"])
	assert.Equal(t, "hunter2", spec.Secrets["password"])
	assert.NotContains(t, spec.Task, "recruiter@example.com")
	assert.NotContains(t, spec.Task, "hunter2")
	assert.NotContains(t, spec.Task, "abc123")
}

func TestBuildTaskPepperTravelsWithSkipList(t *testing.T) {
	t.Parallel()

	hasher := hashsha256.New("orange-zest")
	existing := []string{hasher.Digest("+420777123456")}

	spec := BuildTask("https://jobs.example.com/login", "user", "pass", "Backend Developer", "orange-zest", existing)

	// The agent must be able to reproduce the stored digests: the pepper is
	// a secret it appends to the phone before hashing.
	assert.Equal(t, "orange-zest", spec.Secrets["hash_pepper"])
	assert.Contains(t, spec.Task, "hash_pepper")
	assert.NotContains(t, spec.Task, "orange-zest")
	assert.Contains(t, spec.Secrets["skip_hashes_csv"], hasher.Digest("+420777123456"))

	// Without a pepper the instruction keeps the plain rule and no pepper
	// secret is sent.
	plain := BuildTask("https://jobs.example.com/login", "user", "pass", "Backend Developer", "", nil)
	assert.NotContains(t, plain.Secrets, "hash_pepper")
	assert.Contains(t, plain.Task, "sha256(phone_number)")
	assert.NotContains(t, plain.Task, "hash_pepper")
}

func TestBuildTaskAllowedDomainsAndSchema(t *testing.T) {
	t.Parallel()

	spec := BuildTask("https://jobs.example.com/login", "u", "p", "Backend Developer", "", nil)

	require.Equal(t, []string{"jobs.example.com"}, spec.AllowedDomains)
	assert.True(t, spec.SaveBrowserData)
	assert.Contains(t, spec.Task, "Backend Developer")

	assert.Equal(t, "array", spec.StructuredOutput["type"])
	items, ok := spec.StructuredOutput["items"].(map[string]any)
	require.True(t, ok)
	props, ok := items["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 4)
	for _, field := range []string{"first_name", "last_name", "email", "phone"} {
		assert.Contains(t, props, field)
	}
}
