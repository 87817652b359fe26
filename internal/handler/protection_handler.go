package handler

import (
	"net/http"

	"key-protection-service/internal/domain"
	"key-protection-service/pkg/httputil"
)

// ProtectionKindResponse は保護方式の名前と永続化用の序数。
type ProtectionKindResponse struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// ProtectionKindListResponse は保護方式一覧のレスポンス形式。
type ProtectionKindListResponse struct {
	Protections []ProtectionKindResponse `json:"protections"`
}

// ListProtectionKinds は全保護方式を宣言順で返す。
func ListProtectionKinds(w http.ResponseWriter, r *http.Request) {
	kinds := domain.ProtectionKinds()
	response := ProtectionKindListResponse{
		Protections: make([]ProtectionKindResponse, len(kinds)),
	}
	for i, k := range kinds {
		response.Protections[i] = ProtectionKindResponse{Name: k.String(), Ordinal: k.Ordinal()}
	}
	httputil.JSON(w, http.StatusOK, response)
}
