package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ledongthuc/pdf"
	"github.com/muhammadolammi/interviewworker/internal/llm"
	"github.com/nguyenthenguyen/docx"
	"github.com/streadway/amqp"
)

const (
	mimePlain = "text/plain"
	mimePDF   = "application/pdf"
	mimeDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	sessionUpdatesExchange = "session_updates"
)

// --- File Download ---

// r2Fetcher downloads attachment objects from a Cloudflare R2 bucket.
type r2Fetcher struct {
	client *s3.Client
	bucket string
}

func newR2Fetcher(cfg aws.Config, r2 R2Config) *r2Fetcher {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &r2Fetcher{client: client, bucket: r2.Bucket}
}

func (f *r2Fetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	return DownloadFromR2(ctx, f.client, f.bucket, key)
}

func DownloadFromR2(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	_, err = io.Copy(buf, out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return buf.Bytes(), nil
}

// --- Text extraction ---

// ExtractDocumentText returns the plain text of a resume or transcript file.
func ExtractDocumentText(mime string, data []byte) (string, error) {
	switch mime {
	case mimePlain, "text/markdown":
		return string(data), nil

	case mimePDF:
		return extractPDFText(bytes.NewReader(data))

	case mimeDocx:
		return extractDocxText(bytes.NewReader(data))

	default:
		return "", fmt.Errorf("unsupported file type: %s", mime)
	}
}

// loadAttachment prepares a file for the model. Documents are sent as
// extracted text, images as raw bytes.
func loadAttachment(name, mime string, data []byte) (llm.Attachment, error) {
	a := llm.Attachment{Name: name, MIMEType: mime, Data: data}
	if strings.HasPrefix(mime, "image/") {
		return a, nil
	}
	text, err := ExtractDocumentText(mime, data)
	if err != nil {
		return llm.Attachment{}, fmt.Errorf("%s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return llm.Attachment{}, fmt.Errorf("%s: no text found", name)
	}
	a.Text = text
	return a, nil
}

var extMimes = map[string]string{
	".txt":  mimePlain,
	".md":   "text/markdown",
	".pdf":  mimePDF,
	".docx": mimeDocx,
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// mimeFromPath guesses the MIME type of a local file from its extension.
func mimeFromPath(path string) (string, bool) {
	m, ok := extMimes[strings.ToLower(filepath.Ext(path))]
	return m, ok
}

func extractPDFText(reader io.ReaderAt) (string, error) {
	pdfReader, err := pdf.NewReader(reader, lenReader(reader))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	var textBuilder strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		textBuilder.WriteString(text)
	}
	return textBuilder.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractDocxText(r *bytes.Reader) (string, error) {
	doc, err := docx.ReadDocxFromMemory(r, r.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// GetContent yields document.xml; keep paragraph breaks, drop markup.
	content := docxParagraphEnd.ReplaceAllString(doc.Editable().GetContent(), "\n")
	return strings.TrimSpace(html.UnescapeString(xmlTag.ReplaceAllString(content, ""))), nil
}

// lenReader reports the size of r when it is known.
func lenReader(r io.ReaderAt) int64 {
	switch v := r.(type) {
	case *bytes.Reader:
		return v.Size()
	default:
		return 0
	}
}

// --- Session updates ---

// amqpPublisher sends session updates to the topic exchange on a channel
// of its own.
type amqpPublisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func newAMQPPublisher(conn *amqp.Connection) (*amqpPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpPublisher{ch: ch}, nil
}

func (p *amqpPublisher) Publish(update SessionUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return publishSessionUpdate(p.ch, update)
}

func (p *amqpPublisher) Close() error {
	return p.ch.Close()
}

func declareUpdatesExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		sessionUpdatesExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

func publishSessionUpdate(ch *amqp.Channel, update SessionUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return err
	}
	routingKey := fmt.Sprintf("session.%s", update.SessionID)

	return ch.Publish(
		sessionUpdatesExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
