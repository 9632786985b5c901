// Copyright 2025 DoRobot Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package robot

import (
	"sync"

	"github.com/gammazero/deque"
)

// SafeDeque is a mutex-guarded deque used for the unbounded work queues of
// the capture pipeline.
type SafeDeque struct {
	mutex *sync.Mutex
	deque *deque.Deque
}

func NewDeque() *SafeDeque {
	s := SafeDeque{
		mutex: &sync.Mutex{},
		deque: deque.New(),
	}
	return &s
}

func (s *SafeDeque) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.deque.Len()
}

func (s *SafeDeque) PushBack(v interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.deque.PushBack(v)
}

func (s *SafeDeque) PushFront(v interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.deque.PushFront(v)
}

// PopFront returns and removes the front element, or nil when the deque is
// empty.
func (s *SafeDeque) PopFront() interface{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.deque.Len() == 0 {
		return nil
	}
	return s.deque.PopFront()
}

// PopBack returns and removes the back element, or nil when the deque is
// empty.
func (s *SafeDeque) PopBack() interface{} {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.deque.Len() == 0 {
		return nil
	}
	return s.deque.PopBack()
}

func (s *SafeDeque) Clear() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.deque.Clear()
}
