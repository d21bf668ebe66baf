package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-archive-app/internal/data"
	"go-archive-app/internal/importer"
	"go-archive-app/internal/logger"
	"go-archive-app/internal/metrics"
	"go-archive-app/internal/translate"
)

// Converter turns an uploaded file into HTML.
type Converter interface {
	Convert(filename string, data []byte) (string, error)
}

// ImportServicer defines the interface for document import and translation.
type ImportServicer interface {
	Import(ctx context.Context, req ImportRequest) (*data.Node, error)
	Retranslate(ctx context.Context, id string, source translate.Language) (*data.Node, error)
}

// ImportRequest describes one uploaded document.
type ImportRequest struct {
	ParentID *string
	Filename string
	Data     []byte
	Source   translate.Language
}

// PlaceholderHTML is stored in the target language while a translation is pending.
func PlaceholderHTML(target translate.Language) string {
	if target == translate.Hebrew {
		return `<p class="placeholder" dir="rtl">התרגום בהכנה…</p>`
	}
	return `<p class="placeholder">Translation in progress…</p>`
}

// FailedHTML replaces the placeholder when the translation could not be produced.
func FailedHTML(target translate.Language) string {
	if target == translate.Hebrew {
		return `<p class="translation-error" dir="rtl">התרגום אינו זמין כעת.</p>`
	}
	return `<p class="translation-error">Translation unavailable.</p>`
}

type noTranslator struct{}

func (noTranslator) Translate(context.Context, string, translate.Language) (string, error) {
	return "", translate.ErrUnavailable
}

// ImportService creates file nodes from uploads and fills the counterpart language in
// the background.
type ImportService struct {
	nodes      NodeServicer
	converter  Converter
	translator translate.Translator
	log        logger.Logger
	metrics    metrics.Recorder
	timeout    time.Duration

	wg sync.WaitGroup
}

var _ ImportServicer = (*ImportService)(nil)

// NewImportService creates an ImportService. A nil translator marks every
// translation as failed.
func NewImportService(nodes NodeServicer, conv Converter, tr translate.Translator, log logger.Logger, rec metrics.Recorder, timeout time.Duration) *ImportService {
	if tr == nil {
		tr = noTranslator{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ImportService{nodes: nodes, converter: conv, translator: tr, log: log, metrics: rec, timeout: timeout}
}

// Import converts the upload, stores it as a text file node with the source language
// filled and a placeholder in the other, and starts the translation. The returned
// node is in the pending state.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*data.Node, error) {
	source := req.Source
	if source == "" {
		source = translate.Hebrew
	}
	html, err := s.converter.Convert(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	target := source.Other()

	file := &data.File{ContentType: data.ContentText, Translation: data.TranslationPending}
	setContent(file, source, html)
	setContent(file, target, PlaceholderHTML(target))

	n, err := s.nodes.Add(ctx, Draft{
		Name:     importer.Title(req.Filename),
		ParentID: req.ParentID,
		Body:     file,
	})
	if err != nil {
		return nil, err
	}
	s.log.With(map[string]interface{}{"id": n.ID, "file": req.Filename, "source": string(source)}).Info("Document imported")

	s.translateAsync(n.ID, html, target)
	return n, nil
}

// Retranslate discards the current counterpart of the source language and translates
// it again in the background.
func (s *ImportService) Retranslate(ctx context.Context, id string, source translate.Language) (*data.Node, error) {
	n, err := s.nodes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var html string
	switch b := n.Body.(type) {
	case *data.File:
		html = content(b, source)
	case data.Folder, nil:
		return nil, fmt.Errorf("node %s is a folder: %w", id, ErrInvalidInput)
	}
	if html == "" {
		return nil, fmt.Errorf("node %s has no %s content: %w", id, source, ErrInvalidInput)
	}

	target := source.Other()
	patch := contentPatch(target, PlaceholderHTML(target))
	pending := data.TranslationPending
	patch.Translation = &pending
	n, err = s.nodes.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.translateAsync(id, html, target)
	return n, nil
}

// Wait blocks until every background translation has finished.
func (s *ImportService) Wait() {
	s.wg.Wait()
}

// translateAsync runs detached from the request context: the upload response is sent
// before the translation completes.
func (s *ImportService) translateAsync(id, html string, target translate.Language) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		log := s.log.With(map[string]interface{}{"id": id, "target": string(target)})
		status := data.TranslationReady
		out, err := s.translator.Translate(ctx, html, target)
		switch {
		case err == nil:
			s.metrics.Translation("ok")
		case errors.Is(err, translate.ErrUnavailable):
			s.metrics.Translation("unavailable")
			log.Warn("Translation unavailable, storing error marker")
		default:
			s.metrics.Translation("failed")
			log.Error(err, "Translation failed")
		}
		if err != nil {
			status = data.TranslationFailed
			out = FailedHTML(target)
		}

		patch := contentPatch(target, out)
		patch.Translation = &status
		if _, err := s.nodes.Update(ctx, id, patch); err != nil {
			if errors.Is(err, data.ErrNotFound) {
				log.Debug("Node removed before translation finished")
				return
			}
			log.Error(err, "Failed to store translation")
		}
	}()
}

func content(f *data.File, lang translate.Language) string {
	if lang == translate.Hebrew {
		return f.ContentHE
	}
	return f.ContentEN
}

func setContent(f *data.File, lang translate.Language, html string) {
	if lang == translate.Hebrew {
		f.ContentHE = html
	} else {
		f.ContentEN = html
	}
}

func contentPatch(lang translate.Language, html string) Patch {
	if lang == translate.Hebrew {
		return Patch{ContentHE: &html}
	}
	return Patch{ContentEN: &html}
}
