package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go-archive-app/internal/data"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
	"go-archive-app/internal/session"
	"go-archive-app/internal/translate"

	"github.com/go-chi/chi/v5"
)

// DefaultMaxUpload caps the size of an imported document.
const DefaultMaxUpload = 20 << 20

// PasscodeChecker verifies the shared admin passcode.
type PasscodeChecker interface {
	Check(passcode string) bool
}

// AdminHandler serves the unlock flow and the mutating API.
type AdminHandler struct {
	nodes     service.NodeServicer
	imports   service.ImportServicer
	gate      PasscodeChecker
	sessions  session.Manager
	view      middleware.Renderer
	log       logger.Logger
	maxUpload int64
}

// NewAdminHandler creates a new AdminHandler. maxUpload <= 0 uses DefaultMaxUpload.
func NewAdminHandler(ns service.NodeServicer, is service.ImportServicer, gate PasscodeChecker, sm session.Manager, v middleware.Renderer, log logger.Logger, maxUpload int64) *AdminHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &AdminHandler{nodes: ns, imports: is, gate: gate, sessions: sm, view: v, log: log, maxUpload: maxUpload}
}

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

func decodeJSON(r *http.Request, v interface{}) *middleware.AppError {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err, "Invalid JSON body: "+err.Error())
	}
	return nil
}

// unlockFormHandler shows the passcode form.
func (h *AdminHandler) unlockFormHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	return render(h.view, w, r, "unlock.html", nil)
}

// unlockHandler compares the passcode and marks the session as admin. It accepts a
// form post or a JSON body {"passcode": "..."}.
func (h *AdminHandler) unlockHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var passcode string
	if isJSON(r) {
		var body struct {
			Passcode string `json:"passcode"`
		}
		if appErr := decodeJSON(r, &body); appErr != nil {
			return appErr
		}
		passcode = body.Passcode
	} else {
		passcode = r.FormValue("passcode")
	}

	if !h.gate.Check(passcode) {
		h.log.Warn("Rejected admin passcode")
		if isJSON(r) {
			middleware.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Incorrect passcode"})
			return nil
		}
		return renderStatus(h.view, w, r, http.StatusUnauthorized, "unlock.html", map[string]interface{}{"Error": "Incorrect passcode"})
	}

	// new token on privilege change
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to start admin session", Code: http.StatusInternalServerError}
	}
	h.sessions.Put(r.Context(), session.AdminKey, true)
	h.log.Info("Admin console unlocked")

	if isJSON(r) {
		middleware.WriteJSON(w, http.StatusOK, map[string]bool{"unlocked": true})
		return nil
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

// lockHandler drops the admin flag from the session.
func (h *AdminHandler) lockHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	h.sessions.Remove(r.Context(), session.AdminKey)
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to end admin session", Code: http.StatusInternalServerError}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
	return nil
}

type createNodeRequest struct {
	Name        string                 `json:"name"`
	Type        data.Kind              `json:"type"`
	ParentID    *string                `json:"parentId"`
	ContentType data.ContentType       `json:"contentType"`
	ContentEN   string                 `json:"contentEn"`
	ContentHE   string                 `json:"contentHe"`
	URL         string                 `json:"url"`
	Translation data.TranslationStatus `json:"translation"`
}

// createNodeHandler adds a folder or file. type defaults to folder.
func (h *AdminHandler) createNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req createNodeRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	if req.Type == "" {
		req.Type = data.KindFolder
	}
	body, err := data.NewBody(req.Type, req.ContentType, req.ContentEN, req.ContentHE, req.URL, req.Translation)
	if err != nil {
		return badRequest(err, err.Error())
	}
	n, err := h.nodes.Add(r.Context(), service.Draft{Name: req.Name, ParentID: req.ParentID, Body: body})
	if err != nil {
		return appError(err, "Failed to create node")
	}
	middleware.WriteJSON(w, http.StatusCreated, n)
	return nil
}

func (h *AdminHandler) updateNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var patch service.Patch
	if appErr := decodeJSON(r, &patch); appErr != nil {
		return appErr
	}
	n, err := h.nodes.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		return appError(err, "Failed to update node")
	}
	middleware.WriteJSON(w, http.StatusOK, n)
	return nil
}

// deleteNodeHandler removes the node with its subtree and lists every removed id.
func (h *AdminHandler) deleteNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	ids, err := h.nodes.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return appError(err, "Failed to delete node")
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"deleted": ids})
	return nil
}

// moveNodeHandler reparents a node. {"parentId": null} moves it to the root.
func (h *AdminHandler) moveNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		ParentID *string `json:"parentId"`
	}
	if appErr := decodeJSON(r, &req); appErr != nil {
		return appErr
	}
	n, err := h.nodes.Move(r.Context(), chi.URLParam(r, "id"), req.ParentID)
	if err != nil {
		return appError(err, "Failed to move node")
	}
	middleware.WriteJSON(w, http.StatusOK, n)
	return nil
}

// translateNodeHandler starts a fresh translation from {"source": "en"|"he"}.
func (h *AdminHandler) translateNodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		Source string `json:"source"`
	}
	if r.ContentLength != 0 {
		if appErr := decodeJSON(r, &req); appErr != nil {
			return appErr
		}
	}
	source := translate.Hebrew
	if req.Source != "" {
		lang, err := translate.ParseLanguage(req.Source)
		if err != nil {
			return badRequest(err, err.Error())
		}
		source = lang
	}
	n, err := h.imports.Retranslate(r.Context(), chi.URLParam(r, "id"), source)
	if err != nil {
		return appError(err, "Failed to start translation")
	}
	middleware.WriteJSON(w, http.StatusAccepted, n)
	return nil
}

// importHandler reads a multipart upload (field "file", optional "parentId" and
// "lang") and creates a file node whose translation runs in the background.
func (h *AdminHandler) importHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &middleware.AppError{Error: err, Message: "Upload too large", Code: http.StatusRequestEntityTooLarge}
		}
		return badRequest(err, "Expected a multipart upload")
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		return badRequest(err, "Missing file field")
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return badRequest(err, "Failed to read upload")
	}

	req := service.ImportRequest{Filename: header.Filename, Data: raw, Source: translate.Hebrew}
	if p := strings.TrimSpace(r.FormValue("parentId")); p != "" {
		req.ParentID = &p
	}
	if l := r.FormValue("lang"); l != "" {
		lang, err := translate.ParseLanguage(l)
		if err != nil {
			return badRequest(err, err.Error())
		}
		req.Source = lang
	}

	n, err := h.imports.Import(r.Context(), req)
	if err != nil {
		return appError(err, fmt.Sprintf("Failed to import %s", header.Filename))
	}
	middleware.WriteJSON(w, http.StatusAccepted, n)
	return nil
}

// syncHandler pushes the local snapshot to the remote backend.
func (h *AdminHandler) syncHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	count, err := h.nodes.SyncToRemote(r.Context())
	if err != nil {
		return appError(err, "Failed to sync to remote")
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"synced": count})
	return nil
}
