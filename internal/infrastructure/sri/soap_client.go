// Package sri implementa el cliente de los web services offline del SRI
// (RecepcionComprobantesOffline y AutorizacionComprobantesOffline).
package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Comprobantes-api/internal/application/billing"
	"github.com/jhoicas/Comprobantes-api/internal/domain"
	"github.com/jhoicas/Comprobantes-api/internal/domain/fiscal"
	"github.com/jhoicas/Comprobantes-api/pkg/config"
	pkgsri "github.com/jhoicas/Comprobantes-api/pkg/sri"
)

var _ billing.AuthorityClient = (*Client)(nil)

const (
	soapNS          = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion     = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion  = "http://ec.gob.sri.ws.autorizacion"
	maxResponseSize = 4 << 20
)

// Client cliente SOAP del SRI. Usa net/http para el transporte y etree para leer las respuestas.
type Client struct {
	httpClient       *http.Client
	receptionURL     string
	authorizationURL string
	log              zerolog.Logger
}

// NewClient construye el cliente con las URLs y el timeout del ambiente configurado.
func NewClient(cfg config.SRIConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     cfg.ReceptionURL,
		authorizationURL: cfg.AuthorizationURL,
		log:              log,
	}
}

// Submit invoca validarComprobante con el XML firmado en Base64.
func (c *Client) Submit(ctx context.Context, signedXML []byte) (*fiscal.SubmitResponse, error) {
	body := etree.NewElement("ec:validarComprobante")
	body.CreateAttr("xmlns:ec", nsRecepcion)
	body.CreateElement("xml").SetText(base64.StdEncoding.EncodeToString(signedXML))

	raw, status, err := c.call(ctx, c.receptionURL, body)
	if err != nil {
		return nil, err
	}

	doc, errs := parseEnvelope(raw, status)
	if errs != nil {
		return &fiscal.SubmitResponse{Errors: errs}, nil
	}
	resp := doc.FindElement("//RespuestaRecepcionComprobante")
	if resp == nil {
		return &fiscal.SubmitResponse{Errors: []domain.AuthorityError{{
			Code:    fiscal.CodeEmptyResponse,
			Message: "respuesta de recepción sin RespuestaRecepcionComprobante",
		}}}, nil
	}

	phrase := strings.ToUpper(childText(resp, "estado"))
	out := &fiscal.SubmitResponse{
		Received:     phrase == pkgsri.StateReceived,
		StatusPhrase: phrase,
	}
	for _, comp := range resp.FindElements("./comprobantes/comprobante") {
		out.Errors = append(out.Errors, parseMessages(comp)...)
	}
	c.log.Debug().Str("estado", phrase).Int("mensajes", len(out.Errors)).Msg("recepción SRI")
	return out, nil
}

// CheckAuthorization invoca autorizacionComprobante con la clave de acceso.
func (c *Client) CheckAuthorization(ctx context.Context, accessKey string) (*fiscal.AuthorizationResponse, error) {
	body := etree.NewElement("ec:autorizacionComprobante")
	body.CreateAttr("xmlns:ec", nsAutorizacion)
	body.CreateElement("claveAccesoComprobante").SetText(accessKey)

	raw, status, err := c.call(ctx, c.authorizationURL, body)
	if err != nil {
		return nil, err
	}

	doc, errs := parseEnvelope(raw, status)
	if errs != nil {
		return &fiscal.AuthorizationResponse{Errors: errs}, nil
	}
	auths := doc.FindElements("//RespuestaAutorizacionComprobante/autorizaciones/autorizacion")
	if len(auths) == 0 {
		// El SRI aún no registra la clave: se trata como respuesta vacía (transitoria).
		return &fiscal.AuthorizationResponse{Errors: []domain.AuthorityError{{
			Code:    fiscal.CodeEmptyResponse,
			Message: "el SRI no devolvió autorizaciones para la clave " + accessKey,
		}}}, nil
	}

	// Con varias autorizaciones (reenvíos) prevalece la AUTORIZADO; si no, la primera.
	chosen := auths[0]
	for _, a := range auths {
		if strings.EqualFold(childText(a, "estado"), pkgsri.StateAuthorized) {
			chosen = a
			break
		}
	}

	phrase := strings.ToUpper(childText(chosen, "estado"))
	out := &fiscal.AuthorizationResponse{
		Authorized:        phrase == pkgsri.StateAuthorized,
		StatusPhrase:      phrase,
		AuthorizationCode: childText(chosen, "numeroAutorizacion"),
		AuthorizationDate: parseAuthorizationDate(childText(chosen, "fechaAutorizacion")),
		Errors:            parseMessages(chosen),
	}
	c.log.Debug().Str("estado", phrase).Str("access_key", accessKey).Int("mensajes", len(out.Errors)).Msg("autorización SRI")
	return out, nil
}

// call envía el sobre SOAP. Solo las fallas de transporte (red, timeout, 502/503/504)
// se devuelven como error; cualquier otra respuesta HTTP se entrega al parser.
func (c *Client) call(ctx context.Context, url string, body *etree.Element) ([]byte, int, error) {
	env := etree.NewDocument()
	env.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := env.CreateElement("soapenv:Envelope")
	root.CreateAttr("xmlns:soapenv", soapNS)
	root.CreateElement("soapenv:Header")
	root.CreateElement("soapenv:Body").AddChild(body)

	payload, err := env.WriteToBytes()
	if err != nil {
		return nil, 0, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("soap: timeout o cancelación: %w", ctx.Err())
		}
		return nil, 0, fmt.Errorf("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, resp.StatusCode, fmt.Errorf("soap: SRI respondió HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("soap: leer respuesta: %w", err)
	}
	return raw, resp.StatusCode, nil
}

// parseEnvelope lee la respuesta y traduce a errores transitorios lo que no es una respuesta del SRI:
// XML ilegible (PARSE_ERROR), SOAP Fault (SOAP_FAULT) o HTTP distinto de 200 sin fault (HTTP_ERROR).
func parseEnvelope(raw []byte, status int) (*etree.Document, []domain.AuthorityError) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil || doc.Root() == nil {
		msg := "respuesta SOAP ilegible"
		if err != nil {
			msg += ": " + err.Error()
		}
		if status != http.StatusOK {
			return nil, []domain.AuthorityError{{Code: fiscal.CodeHTTPError, Message: fmt.Sprintf("HTTP %d", status), AdditionalInfo: msg}}
		}
		return nil, []domain.AuthorityError{{Code: fiscal.CodeParseError, Message: msg}}
	}
	if fault := doc.FindElement("//Fault"); fault != nil {
		return nil, []domain.AuthorityError{{
			Code:           fiscal.CodeSOAPFault,
			Message:        childText(fault, "faultstring"),
			AdditionalInfo: childText(fault, "faultcode"),
		}}
	}
	if status != http.StatusOK {
		return nil, []domain.AuthorityError{{Code: fiscal.CodeHTTPError, Message: fmt.Sprintf("HTTP %d", status)}}
	}
	return doc, nil
}

// parseMessages extrae <mensajes><mensaje> (identificador, mensaje, informacionAdicional).
func parseMessages(parent *etree.Element) []domain.AuthorityError {
	var out []domain.AuthorityError
	for _, m := range parent.FindElements("./mensajes/mensaje") {
		out = append(out, domain.AuthorityError{
			Code:           childText(m, "identificador"),
			Message:        childText(m, "mensaje"),
			AdditionalInfo: childText(m, "informacionAdicional"),
		})
	}
	return out
}

func childText(e *etree.Element, tag string) string {
	if c := e.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

var authorizationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999-07:00",
	"02/01/2006 15:04:05",
}

func parseAuthorizationDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range authorizationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// charsetReader acepta respuestas declaradas en ISO-8859-1 / windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "latin-1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "utf-8", "utf8", "":
		return input, nil
	}
	return nil, fmt.Errorf("charset no soportado: %s", label)
}
