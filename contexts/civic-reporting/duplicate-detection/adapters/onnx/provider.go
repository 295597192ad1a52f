// Package onnx implements the embedding provider port with an in-process
// BERT-style sentence model through ONNX Runtime. It exists for deployments
// that cannot call out to a hosted embedding API.
package onnx

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/text/unicode/norm"
)

const maxSeqLen = 128

// ortEnv guards process-wide ONNX Runtime initialization.
var ortEnv struct {
	once sync.Once
	err  error
}

func initRuntime(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

type Provider struct {
	mu       sync.Mutex
	session  *ort.DynamicAdvancedSession
	vocab    *vocab
	embedDim int64
}

// New loads the model and its vocab.txt from modelPath's directory. The
// ONNX Runtime shared library is expected alongside the model files.
func New(modelPath string) (*Provider, error) {
	modelDir := filepath.Dir(modelPath)
	if err := initRuntime(filepath.Join(modelDir, "libonnxruntime.so")); err != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info: %w", err)
	}
	inputNames, err := requiredInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 3 {
		return nil, fmt.Errorf("onnx: expected 3D output tensor, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session: %w", err)
	}

	v, err := loadVocab(filepath.Join(modelDir, "vocab.txt"))
	if err != nil {
		session.Destroy()
		return nil, err
	}

	return &Provider{session: session, vocab: v, embedDim: dims[2]}, nil
}

func requiredInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	present := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		present[input.Name] = true
	}
	names := []string{"input_ids", "attention_mask", "token_type_ids"}
	for _, name := range names {
		if !present[name] {
			return nil, fmt.Errorf("onnx: model missing required input %q", name)
		}
	}
	return names, nil
}

// Embed tokenizes the text, runs inference, and mean-pools the token
// vectors over the attention mask into a single sentence vector.
func (p *Provider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	inputIDs, mask := p.tokenize(text)
	seqLen := int64(len(inputIDs))
	typeIDs := make([]int64, seqLen)

	// ONNX Runtime sessions are not safe for concurrent Run calls on the
	// same session object.
	p.mu.Lock()
	hidden, err := p.infer(inputIDs, mask, typeIDs, seqLen)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	pooled := make([]float64, p.embedDim)
	var tokens float64
	for pos := int64(0); pos < seqLen; pos++ {
		if mask[pos] == 0 {
			continue
		}
		tokens++
		base := pos * p.embedDim
		for d := int64(0); d < p.embedDim; d++ {
			pooled[d] += float64(hidden[base+d])
		}
	}
	if tokens > 0 {
		for d := range pooled {
			pooled[d] /= tokens
		}
	}
	return pooled, nil
}

func (p *Provider) infer(inputIDs, mask, typeIDs []int64, seqLen int64) ([]float32, error) {
	shape := ort.NewShape(1, seqLen)

	tIDs, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: input_ids tensor: %w", err)
	}
	defer tIDs.Destroy()
	tMask, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("onnx: attention_mask tensor: %w", err)
	}
	defer tMask.Destroy()
	tTypes, err := ort.NewTensor(shape, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("onnx: token_type_ids tensor: %w", err)
	}
	defer tTypes.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, p.embedDim))
	if err != nil {
		return nil, fmt.Errorf("onnx: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := p.session.Run([]ort.Value{tIDs, tMask, tTypes}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	src := tOut.GetData()
	out := make([]float32, len(src))
	copy(out, src)
	return out, nil
}

func (p *Provider) Close() error {
	return p.session.Destroy()
}

// tokenize applies basic cleanup plus greedy WordPiece, wrapping the
// sequence in [CLS]/[SEP] and truncating to maxSeqLen.
func (p *Provider) tokenize(text string) (inputIDs, mask []int64) {
	pieces := p.wordpiece(basicTokenize(text))
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	total := int64(len(pieces) + 2)
	inputIDs = make([]int64, total)
	mask = make([]int64, total)
	inputIDs[0] = p.vocab.clsID
	for i, piece := range pieces {
		inputIDs[i+1] = p.vocab.lookup(piece)
	}
	inputIDs[total-1] = p.vocab.sepID
	for i := range mask {
		mask[i] = 1
	}
	return inputIDs, mask
}

func (p *Provider) wordpiece(words []string) []string {
	var pieces []string
	for _, word := range words {
		runes := []rune(word)
		if len(runes) == 0 {
			continue
		}
		if len(runes) > 100 {
			pieces = append(pieces, "[UNK]")
			continue
		}
		start := 0
		var sub []string
		for start < len(runes) {
			end := len(runes)
			matched := ""
			for end > start {
				piece := string(runes[start:end])
				if start > 0 {
					piece = "##" + piece
				}
				if p.vocab.contains(piece) {
					matched = piece
					break
				}
				end--
			}
			if matched == "" {
				sub = []string{"[UNK]"}
				break
			}
			sub = append(sub, matched)
			start = end
		}
		pieces = append(pieces, sub...)
	}
	return pieces
}

func basicTokenize(text string) []string {
	lowered := strings.ToLower(text)
	stripped := stripAccents(lowered)

	var words []string
	for _, field := range strings.Fields(stripped) {
		words = append(words, splitOnPunctuation(field)...)
	}
	return words
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitOnPunctuation(word string) []string {
	var tokens []string
	var current strings.Builder
	for _, r := range word {
		if unicode.IsPunct(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

type vocab struct {
	ids   map[string]int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: open vocab: %w", err)
	}
	defer file.Close()

	ids := make(map[string]int64)
	scanner := bufio.NewScanner(file)
	var index int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r\n")
		if token == "" {
			index++
			continue
		}
		ids[token] = index
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("onnx: read vocab: %w", err)
	}

	v := &vocab{ids: ids}
	var ok bool
	if v.unkID, ok = ids["[UNK]"]; !ok {
		return nil, fmt.Errorf("onnx: vocab missing [UNK]")
	}
	if v.clsID, ok = ids["[CLS]"]; !ok {
		return nil, fmt.Errorf("onnx: vocab missing [CLS]")
	}
	if v.sepID, ok = ids["[SEP]"]; !ok {
		return nil, fmt.Errorf("onnx: vocab missing [SEP]")
	}
	return v, nil
}

func (v *vocab) contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unkID
}
