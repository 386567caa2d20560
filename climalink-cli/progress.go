package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/climalink/climalink/chain"
	"github.com/climalink/climalink/txflow"
	"github.com/ethereum/go-ethereum/common"
)

// progressPrinter prints every change of a run once: status, step states,
// hashes with explorer links, fee estimate and the final message.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	network *chain.Network
	last    txflow.State
	started bool
}

func newProgressPrinter(w io.Writer, network *chain.Network) func(txflow.State) {
	p := &progressPrinter{w: w, network: network}
	return p.print
}

func (p *progressPrinter) link(hash string) string {
	if url := p.network.ExplorerTxURL(common.HexToHash(hash)); url != "" {
		return hash + " (" + url + ")"
	}
	return hash
}

func (p *progressPrinter) print(st txflow.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || st.ID != p.last.ID {
		p.started = true
		p.last = txflow.State{ID: st.ID}
		fmt.Fprintf(p.w, "%s\n", st.Title)
		if st.Description != "" {
			fmt.Fprintf(p.w, "  %s\n", st.Description)
		}
	}
	if st.FeeEstimate != "" && st.FeeEstimate != p.last.FeeEstimate {
		fmt.Fprintf(p.w, "  Estimated fee: %s\n", st.FeeEstimate)
	}
	for i, step := range st.Steps {
		var prev txflow.Step
		if i < len(p.last.Steps) {
			prev = p.last.Steps[i]
		}
		if step.Status != prev.Status && step.Status != txflow.StepPending {
			fmt.Fprintf(p.w, "  [%d/%d] %s: %s\n", i+1, len(st.Steps), step.Name, step.Status)
		}
		if step.Hash != "" && step.Hash != prev.Hash {
			fmt.Fprintf(p.w, "        tx %s\n", p.link(step.Hash))
		}
	}
	if st.Terminal() && st.Status != p.last.Status {
		switch st.Status {
		case txflow.StatusSuccess:
			fmt.Fprintln(p.w, "Transaction confirmed.")
		case txflow.StatusError:
			fmt.Fprintf(p.w, "Error: %s\n", st.Error)
		}
	}
	p.last = st
	p.last.Steps = append([]txflow.Step(nil), st.Steps...)
}
