package filter

import (
	"fmt"

	"github.com/robert-malhotra/volpack/internal/message"
)

type stage struct {
	filter   Filter
	optional bool
}

// Pipeline applies the filters of a filter pipeline message.
type Pipeline struct {
	// stages is indexed like the message, so mask bits line up; a nil
	// filter is an unavailable optional one.
	stages []stage
}

// NewPipeline builds a pipeline. A nil message yields an empty pipeline.
func NewPipeline(fp *message.FilterPipeline) (*Pipeline, error) {
	p := &Pipeline{}
	if fp == nil {
		return p, nil
	}
	for _, info := range fp.Filters {
		f, err := New(info)
		if err != nil {
			return nil, err
		}
		p.stages = append(p.stages, stage{filter: f, optional: info.IsOptional()})
	}
	return p, nil
}

// Encode runs every filter in order and returns the chunk bytes with the
// filter mask to store alongside them. An optional filter that fails is
// skipped and recorded in the mask.
func (p *Pipeline) Encode(input []byte) ([]byte, uint32, error) {
	data := input
	var mask uint32
	for i, s := range p.stages {
		if s.filter == nil {
			mask |= 1 << uint(i)
			continue
		}
		out, err := s.filter.Encode(data)
		if err != nil {
			if s.optional {
				mask |= 1 << uint(i)
				continue
			}
			return nil, 0, fmt.Errorf("%s encode: %w", Name(s.filter.ID()), err)
		}
		data = out
	}
	return data, mask, nil
}

// Decode undoes the filters not excluded by mask, last first.
func (p *Pipeline) Decode(input []byte, mask uint32) ([]byte, error) {
	data := input
	for i := len(p.stages) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		s := p.stages[i]
		if s.filter == nil {
			return nil, fmt.Errorf("%w: optional filter %d was applied to this chunk", ErrUnsupportedFilter, i)
		}
		var err error
		data, err = s.filter.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", Name(s.filter.ID()), err)
		}
	}
	return data, nil
}

func (p *Pipeline) Empty() bool { return len(p.stages) == 0 }

func (p *Pipeline) Len() int { return len(p.stages) }
