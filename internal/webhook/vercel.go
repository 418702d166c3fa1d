package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// vercelEvent mirrors the deployment-event shape Vercel delivers. Non-deployment
// types carry none of the nested data and degrade to a generic acknowledgment.
type vercelEvent struct {
	Type string `json:"type"`
	Data struct {
		Deployment struct {
			ID      string `json:"id"`
			URL     string `json:"url"`
			State   string `json:"state"`
			Type    string `json:"type"`
			Creator struct {
				Username string `json:"username"`
			} `json:"creator"`
			Meta struct {
				GithubCommitSha        string `json:"githubCommitSha"`
				GithubCommitMessage    string `json:"githubCommitMessage"`
				GithubCommitAuthorName string `json:"githubCommitAuthorName"`
				GithubCommitRef        string `json:"githubCommitRef"`
				GithubRepo             string `json:"githubRepo"`
			} `json:"meta"`
		} `json:"deployment"`
		Project struct {
			Name string `json:"name"`
		} `json:"project"`
	} `json:"data"`
}

// VercelHandler returns the receiver for Vercel webhooks. With an empty
// secret, signature verification is skipped (fail-open development mode).
func VercelHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if secret == "" {
		logger.Warn("vercel webhook signature verification disabled: no secret configured")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read body failed")
			return
		}

		if secret != "" {
			if !verifyVercelSignature(body, r.Header.Get("X-Vercel-Signature"), secret) {
				logger.Warn("vercel webhook signature mismatch")
				writeError(w, http.StatusUnauthorized, "Invalid signature")
				return
			}
		} else {
			logger.Warn("accepting unverified vercel webhook")
		}

		var payload vercelEvent
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Error("vercel webhook parse failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "invalid JSON payload")
			return
		}

		logger.Info("received vercel webhook", zap.String("event", payload.Type))

		result := map[string]any{
			"success":    true,
			"event_type": payload.Type,
		}

		if strings.Contains(payload.Type, "deployment") {
			d := payload.Data.Deployment
			result["deployment_id"] = d.ID
			result["deployment_url"] = d.URL
			result["deployment_state"] = d.State
			result["project_name"] = payload.Data.Project.Name
			result["type"] = d.Type
			result["creator"] = d.Creator.Username

			if d.Meta.GithubCommitSha != "" {
				result["github_commit"] = map[string]string{
					"sha":     d.Meta.GithubCommitSha,
					"message": d.Meta.GithubCommitMessage,
					"author":  d.Meta.GithubCommitAuthorName,
					"ref":     d.Meta.GithubCommitRef,
					"repo":    d.Meta.GithubRepo,
				}
			}
		}

		writeJSON(w, http.StatusOK, result)
	}
}
