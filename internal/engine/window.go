// Copyright 2017-2024 Lei Ni (nilei81@gmail.com) and other contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/eapache/queue"
)

// window is the set of in-flight writes. Tags are kept in submission order,
// writes can retire in any order and are looked up by tag.
type window struct {
	order    *queue.Queue
	inflight map[uint64]*request
}

func newWindow() *window {
	return &window{
		order:    queue.New(),
		inflight: make(map[uint64]*request),
	}
}

func (w *window) len() int {
	return len(w.inflight)
}

func (w *window) add(r *request) {
	if _, ok := w.inflight[r.tag]; ok {
		plog.Panicf("tag %d is already in flight", r.tag)
	}
	w.order.Add(r.tag)
	w.inflight[r.tag] = r
}

// head returns the tag of the oldest in-flight write.
func (w *window) head() (uint64, bool) {
	w.compact()
	if w.order.Length() == 0 {
		return 0, false
	}
	return w.order.Peek().(uint64), true
}

// take removes the write with the specified tag from the window.
func (w *window) take(tag uint64) (*request, error) {
	r, ok := w.inflight[tag]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTag, "tag %d", tag)
	}
	delete(w.inflight, tag)
	w.compact()
	return r, nil
}

// compact drops retired tags from the front of the order queue.
func (w *window) compact() {
	for w.order.Length() > 0 {
		if _, ok := w.inflight[w.order.Peek().(uint64)]; ok {
			return
		}
		w.order.Remove()
	}
}
