package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// githubEvent covers the fields this receiver summarizes across the known
// event types. Absent fields stay at their zero values; unknown shapes never
// fail the request.
type githubEvent struct {
	Action  string `json:"action"`
	Ref     string `json:"ref"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"pull_request"`
	Issue struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
	} `json:"issue"`
}

// GitHubHandler returns the receiver for GitHub webhooks. With an empty
// secret, signature verification is skipped (fail-open development mode).
func GitHubHandler(secret string, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if secret == "" {
		logger.Warn("github webhook signature verification disabled: no secret configured")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "read body failed")
			return
		}

		eventType := r.Header.Get("X-GitHub-Event")
		deliveryID := r.Header.Get("X-GitHub-Delivery")

		if secret != "" {
			if !verifyGitHubSignature(body, r.Header.Get("X-Hub-Signature-256"), secret) {
				logger.Warn("github webhook signature mismatch",
					zap.String("event", eventType),
					zap.String("delivery", deliveryID))
				writeError(w, http.StatusUnauthorized, "Invalid signature")
				return
			}
		} else {
			logger.Warn("accepting unverified github webhook",
				zap.String("event", eventType),
				zap.String("delivery", deliveryID))
		}

		var payload githubEvent
		if err := json.Unmarshal(body, &payload); err != nil {
			logger.Error("github webhook parse failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "invalid JSON payload")
			return
		}

		logger.Info("received github webhook",
			zap.String("event", eventType),
			zap.String("delivery", deliveryID))

		result := map[string]any{
			"success":     true,
			"event_type":  eventType,
			"delivery_id": deliveryID,
		}

		switch eventType {
		case "push":
			result["commits"] = len(payload.Commits)
			result["ref"] = payload.Ref
			result["repository"] = payload.Repository.FullName
		case "pull_request":
			result["action"] = payload.Action
			result["pr_number"] = payload.PullRequest.Number
			result["pr_title"] = payload.PullRequest.Title
		case "issues":
			result["action"] = payload.Action
			result["issue_number"] = payload.Issue.Number
			result["issue_title"] = payload.Issue.Title
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write webhook response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
