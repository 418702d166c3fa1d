// Package scrape implements the candidate ingestion workflow: task
// construction for the automation provider, duplicate-safe persistence, and
// the orchestrator that ties them together.
package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"portal-connector/internal/browseruse"
)

// BuildTask produces the automation task for one scrape run. Credentials and
// the skip-list travel in the secrets namespace, never in the instruction
// text, so the provider cannot echo them back in clear task descriptions.
// The skip-list is comma-joined to fit the provider's flat secret-value
// encoding. When a pepper is in use it must travel along too, otherwise the
// agent cannot reproduce the stored digests and the skip-list never matches.
func BuildTask(portalURL, username, password, positionName, pepper string, existingHashes []string) browseruse.TaskSpec {
	secrets := map[string]string{
		"username":        username,
		"password":        password,
		"skip_hashes_csv": strings.Join(existingHashes, ","),
	}
	if pepper != "" {
		secrets["hash_pepper"] = pepper
	}
	return browseruse.TaskSpec{
		Task:             buildInstruction(portalURL, positionName, pepper),
		Secrets:          secrets,
		AllowedDomains:   []string{ExtractDomain(portalURL)},
		StructuredOutput: candidateSchema(),
		SaveBrowserData:  true,
	}
}

// buildInstruction renders the agent instruction. The portal serves a Czech
// recruiting audience, so the prompt stays in Czech. The hash rule must match
// sha256.Hasher.Digest exactly: raw phone bytes, then the pepper appended.
func buildInstruction(portalURL, positionName, pepper string) string {
	hashRule := "`sha256(phone_number)`"
	if pepper != "" {
		hashRule = "`sha256(phone_number + hash_pepper)`, kde `hash_pepper` je tajná proměnná"
	}
	return fmt.Sprintf(`## Cíl
Přihlaš se na %s pomocí zadaných přihlašovacích údajů.
Vyhledej pozici s názvem "%s", otevři seznam všech kandidátů (interní, neveřejná část).

U každého kandidáta vytěž:
  – first_name
  – last_name
  – email
  – phone

Bezpečnost duplicit:
  1. Před uložením každého kandidáta spočítej %s → hex.
  2. Máš CSV seznam hashů v tajné proměnné `+"`skip_hashes_csv`"+`.
  3. Jestliže hash existuje v seznamu, kandidáta zcela ignoruj.

Výstup:
  Vrať jediný JSON podle `+"`structured_output_json`"+` schématu.
(agent tak splní požadavek "nikdy nezapsat duplicitního kandidáta")`, portalURL, positionName, hashRule)
}

// candidateSchema is the machine-checkable output contract: an array of
// objects with exactly the four string fields.
func candidateSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"first_name": map[string]any{"type": "string"},
				"last_name":  map[string]any{"type": "string"},
				"email":      map[string]any{"type": "string"},
				"phone":      map[string]any{"type": "string"},
			},
		},
	}
}

// ExtractDomain returns the host component of a URL, stripped of scheme and
// path. It is the allowed-domains safety boundary for the remote agent. An
// unparseable URL yields ""; rejecting that is the orchestrator's job.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}
