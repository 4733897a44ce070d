package hgraph

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xDarkicex/annsearch/internal/framing"
	"github.com/xDarkicex/annsearch/internal/labeltable"
	"github.com/xDarkicex/annsearch/internal/visited"
)

// graphMeta is the small JSON-encoded header describing the graph shape;
// everything bulky (vectors, adjacency) lives in its own binary section so
// a reader never has to materialize the whole index just to check its
// entry point.
type graphMeta struct {
	Count     int     `json:"count"`
	Dimension int     `json:"dimension"`
	EntryID   uint32  `json:"entry_id"`
	HasEntry  bool    `json:"has_entry"`
	MaxLevel  int32   `json:"max_level"`
	Metric    int     `json:"metric"`
	M         int     `json:"m"`
	Quantized bool    `json:"quantized"`
}

// Serialize writes the index to w as a framing container with sections
// "meta", "vectors", "adjacency", and "labels" (§6.3).
func (idx *Index) Serialize(w io.Writer) error {
	idx.resizeMu.RLock()
	defer idx.resizeMu.RUnlock()

	idx.entryMu.RLock()
	meta := graphMeta{
		Count:     int(idx.count),
		Dimension: idx.cfg.Dimension,
		EntryID:   idx.entryID,
		HasEntry:  idx.hasEntry,
		MaxLevel:  idx.maxLevel,
		Metric:    int(idx.cfg.Metric),
		M:         idx.cfg.M,
		Quantized: idx.quant != nil,
	}
	idx.entryMu.RUnlock()

	fw := framing.NewWriter(w)

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("hgraph: marshal meta: %w", err)
	}
	if err := fw.WriteSection("meta", metaBytes); err != nil {
		return err
	}

	var vecBuf bytes.Buffer
	for id := 0; id < meta.Count; id++ {
		vecBuf.Write(idx.vectors.Get(id))
	}
	if err := fw.WriteSection("vectors", vecBuf.Bytes()); err != nil {
		return err
	}

	var adjBuf bytes.Buffer
	for id := 0; id < meta.Count; id++ {
		n := idx.nodes[id]
		binary.Write(&adjBuf, binary.LittleEndian, n.level)
		for l := 0; l <= int(n.level); l++ {
			links := n.linksAt(l)
			binary.Write(&adjBuf, binary.LittleEndian, uint32(len(links)))
			for _, nb := range links {
				binary.Write(&adjBuf, binary.LittleEndian, nb)
			}
		}
	}
	if err := fw.WriteSection("adjacency", adjBuf.Bytes()); err != nil {
		return err
	}

	snap := idx.labels.Snapshot()
	labelBytes, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("hgraph: marshal labels: %w", err)
	}
	if err := fw.WriteSection("labels", labelBytes); err != nil {
		return err
	}

	return fw.Close()
}

// Deserialize replaces idx's contents with what r (of the given size)
// encodes. Fails if idx is non-empty.
func (idx *Index) Deserialize(r io.ReaderAt, size int64) error {
	if idx.count > 0 {
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
	var meta graphMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("hgraph: unmarshal meta: %w", err)
	}

	labelBytes, err := fr.Section("labels")
	if err != nil {
		return err
	}
	var snap labeltable.Snapshot
	if err := json.Unmarshal(labelBytes, &snap); err != nil {
		return fmt.Errorf("hgraph: unmarshal labels: %w", err)
	}

	vecBytes, err := fr.Section("vectors")
	if err != nil {
		return err
	}
	adjBytes, err := fr.Section("adjacency")
	if err != nil {
		return err
	}

	idx.resizeMu.Lock()
	defer idx.resizeMu.Unlock()

	idx.nodes = make([]*node, meta.Count)
	idx.count = int32(meta.Count)
	idx.labels = labeltable.Restore(snap)
	idx.visited = visited.NewPool(2, meta.Count)
	idx.entryID = meta.EntryID
	idx.hasEntry = meta.HasEntry
	idx.maxLevel = meta.MaxLevel

	vr := bytes.NewReader(vecBytes)
	ar := bytes.NewReader(adjBytes)
	for id := 0; id < meta.Count; id++ {
		var level int32
		if err := binary.Read(ar, binary.LittleEndian, &level); err != nil {
			return fmt.Errorf("hgraph: read level for node %d: %w", id, err)
		}
		n := newNode(int(level))

		idxv, slot := idx.vectors.Append()
		if idxv != id {
			return fmt.Errorf("hgraph: vector slot mismatch at node %d", id)
		}
		if _, err := io.ReadFull(vr, slot); err != nil {
			return fmt.Errorf("hgraph: read vector for node %d: %w", id, err)
		}

		for l := 0; l <= int(level); l++ {
			var cnt uint32
			if err := binary.Read(ar, binary.LittleEndian, &cnt); err != nil {
				return fmt.Errorf("hgraph: read link count for node %d level %d: %w", id, l, err)
			}
			links := make([]uint32, cnt)
			for i := range links {
				if err := binary.Read(ar, binary.LittleEndian, &links[i]); err != nil {
					return fmt.Errorf("hgraph: read link for node %d level %d: %w", id, l, err)
				}
			}
			n.setLinks(l, links)
		}
		idx.nodes[id] = n
	}

	idx.built = true
	return nil
}
