package sindi

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xDarkicex/annsearch/internal/framing"
	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/quant"
)

// indexMeta is the small JSON-encoded header; the bulky per-term posting
// data lives in its own binary section (§6.3: "term arrays (ids and
// weights, per term), term sizes, quantization parameters if used, label
// table snapshot, and index parameters").
type indexMeta struct {
	NextID        uint32  `json:"next_id"`
	TermIDLimit   int     `json:"term_id_limit"`
	UseReorder    bool    `json:"use_reorder"`
	DocPruneRatio float64 `json:"doc_prune_ratio"`
	Quantized     bool    `json:"quantized"`
	QuantBits     int     `json:"quant_bits"`
	NumTerms      int     `json:"num_terms"`
}

// Serialize writes the index as a framing container with sections "meta",
// "terms", and "labels".
func (idx *Index) Serialize(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	meta := indexMeta{
		NextID:        idx.nextID,
		TermIDLimit:   idx.cfg.TermIDLimit,
		UseReorder:    idx.cfg.UseReorder,
		DocPruneRatio: idx.cfg.DocPruneRatio,
		Quantized:     idx.quant != nil,
	}
	if idx.quant != nil {
		meta.QuantBits = idx.quant.Config().Bits
	}

	fw := framing.NewWriter(w)

	var termBuf bytes.Buffer
	for t, pl := range idx.terms {
		if pl == nil {
			continue
		}
		ids, weights, qweights := pl.snapshot()
		if len(ids) == 0 {
			continue
		}
		meta.NumTerms++
		binary.Write(&termBuf, binary.LittleEndian, uint32(t))
		binary.Write(&termBuf, binary.LittleEndian, uint32(len(ids)))
		for i := range ids {
			binary.Write(&termBuf, binary.LittleEndian, ids[i])
			binary.Write(&termBuf, binary.LittleEndian, weights[i])
		}
		hasQ := len(qweights) == len(ids)
		binary.Write(&termBuf, binary.LittleEndian, hasQ)
		if hasQ {
			termBuf.Write(qweights)
		}
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("sindi: marshal meta: %w", err)
	}
	if err := fw.WriteSection("meta", metaBytes); err != nil {
		return err
	}
	if err := fw.WriteSection("terms", termBuf.Bytes()); err != nil {
		return err
	}

	snap := idx.labels.Snapshot()
	labelBytes, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("sindi: marshal labels: %w", err)
	}
	if err := fw.WriteSection("labels", labelBytes); err != nil {
		return err
	}

	return fw.Close()
}

// Deserialize replaces idx's contents with what r (of the given size)
// encodes. Fails if idx is non-empty.
func (idx *Index) Deserialize(r io.ReaderAt, size int64) error {
	if idx.nextID > 0 {
		return ErrNonEmptyTarget
	}

	fr, err := framing.NewReader(r, size)
	if err != nil {
		return err
	}

	metaBytes, err := fr.Section("meta")
	if err != nil {
		return err
	}
	var meta indexMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("sindi: unmarshal meta: %w", err)
	}

	labelBytes, err := fr.Section("labels")
	if err != nil {
		return err
	}
	var snap labeltable.Snapshot
	if err := json.Unmarshal(labelBytes, &snap); err != nil {
		return fmt.Errorf("sindi: unmarshal labels: %w", err)
	}

	termBytes, err := fr.Section("terms")
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.terms = make([]*postingList, meta.TermIDLimit)
	idx.nextID = meta.NextID
	idx.labels = labeltable.Restore(snap)
	idx.cfg.TermIDLimit = meta.TermIDLimit
	idx.cfg.UseReorder = meta.UseReorder
	idx.cfg.DocPruneRatio = meta.DocPruneRatio

	tr := bytes.NewReader(termBytes)
	for i := 0; i < meta.NumTerms; i++ {
		var term uint32
		var count uint32
		if err := binary.Read(tr, binary.LittleEndian, &term); err != nil {
			return fmt.Errorf("sindi: read term id %d: %w", i, err)
		}
		if err := binary.Read(tr, binary.LittleEndian, &count); err != nil {
			return fmt.Errorf("sindi: read posting count for term %d: %w", term, err)
		}
		pl := &postingList{ids: make([]uint32, count), weights: make([]float32, count)}
		for j := uint32(0); j < count; j++ {
			if err := binary.Read(tr, binary.LittleEndian, &pl.ids[j]); err != nil {
				return fmt.Errorf("sindi: read posting id for term %d: %w", term, err)
			}
			if err := binary.Read(tr, binary.LittleEndian, &pl.weights[j]); err != nil {
				return fmt.Errorf("sindi: read posting weight for term %d: %w", term, err)
			}
		}
		var hasQ bool
		if err := binary.Read(tr, binary.LittleEndian, &hasQ); err != nil {
			return fmt.Errorf("sindi: read quantized flag for term %d: %w", term, err)
		}
		if hasQ {
			pl.qweights = make([]byte, count)
			if _, err := io.ReadFull(tr, pl.qweights); err != nil {
				return fmt.Errorf("sindi: read quantized weights for term %d: %w", term, err)
			}
		}
		if int(term) >= len(idx.terms) {
			return fmt.Errorf("sindi: term id %d exceeds restored term_id_limit %d", term, len(idx.terms))
		}
		idx.terms[term] = pl
	}

	if meta.Quantized {
		idx.quantCfg = &quant.Config{Bits: meta.QuantBits, TrainRatio: 1.0}
		q, err := (&quant.ScalarFactory{}).Create(idx.quantCfg)
		if err != nil {
			return fmt.Errorf("sindi: configure restored quantizer: %w", err)
		}
		var allWeights []float32
		for _, pl := range idx.terms {
			if pl != nil {
				allWeights = append(allWeights, pl.weights...)
			}
		}
		if len(allWeights) > 0 {
			if err := q.Train(context.Background(), allWeights); err != nil {
				return fmt.Errorf("sindi: retrain restored quantizer: %w", err)
			}
		}
		idx.quant = q
	}

	idx.built = true
	return nil
}
