// Package pipeline composes describing and matching into the analyze flow
// and keeps the description cache in step with the reference store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/kozaktomas/sign-vision/internal/ai"
	"github.com/kozaktomas/sign-vision/internal/database"
	"github.com/kozaktomas/sign-vision/internal/descriptions"
	"github.com/kozaktomas/sign-vision/internal/media"
)

// AnalysisResult is the outcome of one analyze request. It is not persisted.
type AnalysisResult struct {
	Description string // movement description of the submitted video
	Result      string // the matcher's explanation
	MatchedSign string // empty when nothing matched
	AvatarFile  string // filename under the avatars directory, empty when none
}

// Orchestrator runs the analyze flow and every reference store mutation.
type Orchestrator struct {
	describer ai.VideoDescriber
	matcher   ai.SignMatcher
	signs     database.SignWriter // nil when running without a database
	media     *media.Store
	cachePath string

	// rebuildMu serializes cache rebuilds.
	rebuildMu sync.Mutex
}

// New returns an Orchestrator. signs may be nil, in which case avatars are
// only found by scanning the media directory and mutations fail.
func New(describer ai.VideoDescriber, matcher ai.SignMatcher, signs database.SignWriter, store *media.Store, cachePath string) *Orchestrator {
	return &Orchestrator{
		describer: describer,
		matcher:   matcher,
		signs:     signs,
		media:     store,
		cachePath: cachePath,
	}
}

// Analyze describes the video and matches the description against the
// description cache, read fresh for this call. A describe failure is
// returned as is and no match is attempted.
func (o *Orchestrator) Analyze(ctx context.Context, video []byte, filename string) (*AnalysisResult, error) {
	description, err := o.describer.Describe(ctx, video, filename)
	if err != nil {
		return nil, err
	}

	references, err := descriptions.Load(o.cachePath)
	if err != nil {
		return nil, err
	}

	match, err := o.matcher.Match(ctx, description, references)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Description: description,
		Result:      match.Explanation,
		MatchedSign: match.SignName,
		AvatarFile:  o.ResolveAvatar(ctx, match.SignName),
	}, nil
}

// ResolveAvatar returns the demonstration video filename for a matched sign:
// the stored video of the reference entry when there is one, otherwise a
// video in the avatars directory named after the sign. It returns "" when
// nothing is found and never fails; lookup errors are only logged.
func (o *Orchestrator) ResolveAvatar(ctx context.Context, signName string) string {
	if signName == "" {
		return ""
	}

	if o.signs != nil {
		sign, err := o.signs.GetByName(ctx, signName)
		switch {
		case err != nil:
			log.Printf("avatar lookup for %q failed: %v", signName, err)
		case sign != nil && sign.VideoPath != "":
			return sign.VideoPath
		}
	}

	if o.media == nil {
		return ""
	}
	if filename, ok := o.media.FindByStem(signName); ok {
		return filename
	}
	return ""
}

// RebuildCache rewrites the description cache from every sign in the store
// that has a description, in store order.
func (o *Orchestrator) RebuildCache(ctx context.Context) (int, error) {
	if o.signs == nil {
		return 0, errors.New("reference store is not configured")
	}

	o.rebuildMu.Lock()
	defer o.rebuildMu.Unlock()

	unlock, err := descriptions.Lock(ctx, o.cachePath)
	if err != nil {
		return 0, err
	}
	defer unlock()

	signs, err := o.signs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing signs: %w", err)
	}

	entries := make([]descriptions.Entry, 0, len(signs))
	for i := range signs {
		if signs[i].HasDescription() {
			entries = append(entries, descriptions.Entry{Name: signs[i].Name, Description: signs[i].Description})
		}
	}

	if err := descriptions.Write(o.cachePath, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
