package apianalytics

import (
	"fmt"
	"net/http"
	"path"

	shared "github.com/vitalsync/server/pkg"
)

type deleteUserResponse struct {
	Status         string `json:"status"`
	Documents      int    `json:"documents"`
	Exports        int    `json:"exports"`
	AccountDeleted bool   `json:"accountDeleted"`
}

// deleteUser erases the caller's stored data, their exports and finally
// their sign-in account.
func (s *Server) deleteUser(r *http.Request, userID string) (interface{}, error) {
	ctx := r.Context()
	logger := s.logger.With("user_id", userID)

	docs, err := s.svc.DB.DeleteUserData(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete user data: %w", err)
	}
	resp := deleteUserResponse{Status: "deleted", Documents: docs}

	if bucket := s.artifactBucket(); bucket != "" && s.svc.Store != nil {
		n, err := s.svc.Store.DeletePrefix(ctx, bucket, path.Join(shared.ExportsPrefix, userID)+"/")
		if err != nil {
			return nil, fmt.Errorf("delete exports: %w", err)
		}
		resp.Exports = n
	}

	if s.accounts != nil {
		if err := s.accounts.DeleteUser(ctx, userID); err != nil {
			// The data is already gone; the caller can retry to drop the account.
			logger.Warn("Failed to delete auth account", "error", err)
		} else {
			resp.AccountDeleted = true
		}
	}

	logger.Info("User data deleted", "documents", resp.Documents, "exports", resp.Exports, "account_deleted", resp.AccountDeleted)
	return resp, nil
}

func (s *Server) artifactBucket() string {
	if s.svc.Config != nil {
		return s.svc.Config.GCSArtifactBucket
	}
	return ""
}
