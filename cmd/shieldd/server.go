// server.go - HTTP surface of the shieldd proving service.
//
// The endpoints are a byte-oriented host binding over the protocol core:
// fixed-width fields travel hex-encoded, opaque blobs (witnesses, receipts,
// ciphertexts) base64-encoded. Proving is dispatched through the bounded
// pool with the configured timeout; everything else runs inline.
package main

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"shielded/internal/engine"
	"shielded/internal/protocol"
)

type server struct {
	cfg     *Config
	log     zerolog.Logger
	met     *metrics
	eng     *engine.Groth16Engine
	pool    *engine.Pool
	acc     *protocol.Accumulator
	limiter *clientLimiter
	health  *healthChecker
	rand    protocol.Source
}

func newServer(cfg *Config, log zerolog.Logger, eng *engine.Groth16Engine, reg *prometheus.Registry) *server {
	s := &server{
		cfg:     cfg,
		log:     log,
		met:     newMetrics(reg),
		eng:     eng,
		pool:    engine.NewPool(eng, cfg.MaxProvers, log),
		acc:     protocol.NewAccumulator(),
		limiter: newClientLimiter(cfg.RateBurst, cfg.RateRefillPerSec),
		health:  newHealthChecker(version),
		rand:    protocol.SystemSource(),
	}
	s.health.Register("randomness", func() error {
		_, err := s.rand.Random32()
		return err
	})
	return s
}

func (s *server) routes(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/resource", s.handleResource)
	mux.HandleFunc("POST /v1/witness", s.handleWitness)
	mux.HandleFunc("POST /v1/prove", s.handleProve)
	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("POST /v1/encrypt", s.handleEncrypt)
	mux.HandleFunc("POST /v1/decrypt", s.handleDecrypt)
	mux.HandleFunc("POST /v1/accumulator/insert", s.handleInsert)
	mux.HandleFunc("GET /v1/accumulator/path", s.handlePathFor)
	mux.HandleFunc("GET /v1/keypair", s.handleKeypair)
	mux.HandleFunc("GET /v1/nullifier-key", s.handleNullifierKey)
	mux.HandleFunc("GET /v1/random", s.handleRandom)
	mux.HandleFunc("GET /healthz", s.health.Handler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// decodeHexField decodes a hex request field, naming the field on failure so
// a bad encoding is not misreported as a length error downstream.
func decodeHexField(name, h string) ([]byte, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, errors.New("invalid hex in field " + name)
	}
	return b, nil
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type resourceRequest struct {
	Label        string `json:"label"`
	Nonce        string `json:"nonce"`
	Quantity     string `json:"quantity"`
	Value        string `json:"value"`
	Ephemeral    bool   `json:"ephemeral"`
	NullifierKey string `json:"nullifier_key"`
	LogicRef     string `json:"logic_ref"`
	RandSeed     string `json:"rand_seed"`
}

func (s *server) handleResource(w http.ResponseWriter, r *http.Request) {
	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fields := make(map[string][]byte, 7)
	for name, h := range map[string]string{
		"label": req.Label, "nonce": req.Nonce, "quantity": req.Quantity,
		"value": req.Value, "nullifier_key": req.NullifierKey,
		"logic_ref": req.LogicRef, "rand_seed": req.RandSeed,
	} {
		b, err := decodeHexField(name, h)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fields[name] = b
	}
	nk, err := protocol.NullifierKeyFromBytes(fields["nullifier_key"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := protocol.NewResource(fields["label"], fields["nonce"], fields["quantity"],
		fields["value"], req.Ephemeral, nk, fields["logic_ref"], fields["rand_seed"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"resource":   hex.EncodeToString(res.Bytes()),
		"commitment": res.Commitment().String(),
	})
}

type witnessRequest struct {
	Consumed     string `json:"consumed"`
	Created      string `json:"created"`
	RCV          string `json:"rcv"`
	Path         string `json:"path"`
	NullifierKey string `json:"nullifier_key"`
}

func (s *server) handleWitness(w http.ResponseWriter, r *http.Request) {
	var req witnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	fields := make(map[string][]byte, 5)
	for name, h := range map[string]string{
		"consumed": req.Consumed, "created": req.Created, "rcv": req.RCV,
		"path": req.Path, "nullifier_key": req.NullifierKey,
	} {
		b, err := decodeHexField(name, h)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fields[name] = b
	}
	consumed, err := protocol.ResourceFromBytes(fields["consumed"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := protocol.ResourceFromBytes(fields["created"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var path protocol.MerklePath
	if req.Path == "" {
		path = protocol.GeneratePath32()
	} else if path, err = protocol.MerklePathFromBytes(fields["path"]); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	nk, err := protocol.NullifierKeyFromBytes(fields["nullifier_key"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	witness, err := protocol.NewComplianceWitness(consumed, created, fields["rcv"], path, nk)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	wb, err := witness.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"witness": base64.StdEncoding.EncodeToString(wb),
	})
}

type proveRequest struct {
	Witness string `json:"witness"`
}

func (s *server) handleProve(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r)) {
		s.met.requestsDenied.Inc()
		writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		return
	}
	var req proveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	witness, err := base64.StdEncoding.DecodeString(req.Witness)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ProveTimeout)
	defer cancel()

	s.met.proveInflight.Inc()
	start := time.Now()
	receipt, err := s.pool.Prove(ctx, witness)
	s.met.proveInflight.Dec()
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			s.met.proveTotal.WithLabelValues("timeout").Inc()
			writeError(w, http.StatusGatewayTimeout, err)
		case errors.Is(err, engine.ErrProve):
			// Expected rejection path: the witness violates a compliance
			// clause.
			s.met.proveTotal.WithLabelValues("rejected").Inc()
			writeError(w, http.StatusUnprocessableEntity, err)
		default:
			s.met.proveTotal.WithLabelValues("error").Inc()
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	s.met.proveTotal.WithLabelValues("ok").Inc()
	s.met.proveDuration.Observe(time.Since(start).Seconds())

	rb, err := receipt.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"receipt": base64.StdEncoding.EncodeToString(rb),
		"journal": hex.EncodeToString(receipt.Journal),
		"image":   hex.EncodeToString(receipt.Image[:]),
	})
}

type verifyRequest struct {
	Receipt string `json:"receipt"`
	Image   string `json:"image"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rb, err := base64.StdEncoding.DecodeString(req.Receipt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	receipt, err := engine.ReceiptFromBytes(rb)
	if err != nil {
		s.met.verifyTotal.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	image := s.eng.ImageID()
	if req.Image != "" {
		ib, err := hex.DecodeString(req.Image)
		if err != nil || len(ib) != len(image) {
			writeError(w, http.StatusBadRequest, errors.New("invalid image id"))
			return
		}
		copy(image[:], ib)
	}
	ok, err := s.pool.Verify(receipt, image)
	if err != nil {
		s.met.verifyTotal.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ok {
		s.met.verifyTotal.WithLabelValues("valid").Inc()
	} else {
		s.met.verifyTotal.WithLabelValues("invalid").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

type cryptRequest struct {
	Data      string `json:"data"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
	Nonce     string `json:"nonce"`
}

func (s *server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	s.handleCrypt(w, r, protocol.Encrypt)
}

func (s *server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	s.handleCrypt(w, r, protocol.Decrypt)
}

func (s *server) handleCrypt(w http.ResponseWriter, r *http.Request, op func(data, pk, sk, nonce []byte) ([]byte, error)) {
	var req cryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pk, err := decodeHexField("public_key", req.PublicKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sk, err := decodeHexField("secret_key", req.SecretKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	nonce, err := decodeHexField("nonce", req.Nonce)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := op(data, pk, sk, nonce)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, protocol.ErrAuthentication) {
			code = http.StatusUnprocessableEntity
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"data": base64.StdEncoding.EncodeToString(out),
	})
}

type insertRequest struct {
	Commitment string `json:"commitment"`
}

func (s *server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b, err := hex.DecodeString(req.Commitment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cm, err := protocol.DigestFromBytes(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	index := s.acc.Insert(cm)
	writeJSON(w, http.StatusOK, map[string]any{
		"index": index,
		"root":  s.acc.Root().String(),
	})
}

func (s *server) handlePathFor(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("missing or invalid index"))
		return
	}
	path, err := s.acc.PathFor(index)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path": hex.EncodeToString(path.Bytes()),
		"root": s.acc.Root().String(),
	})
}

func (s *server) handleKeypair(w http.ResponseWriter, r *http.Request) {
	kp, err := protocol.GenerateKeypair(s.rand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"secret_key": hex.EncodeToString(kp.Secret[:]),
		"public_key": hex.EncodeToString(kp.Public[:]),
	})
}

func (s *server) handleNullifierKey(w http.ResponseWriter, r *http.Request) {
	nk, err := protocol.GenerateNullifierKey(s.rand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"nullifier_key": hex.EncodeToString(nk[:]),
		"commitment":    nk.Commitment().String(),
	})
}

func (s *server) handleRandom(w http.ResponseWriter, r *http.Request) {
	b, err := protocol.Random32(s.rand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"random": hex.EncodeToString(b[:])})
}
