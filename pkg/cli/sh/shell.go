// Package sh provides the interactive shell talking to flipbot robots and
// simulators over MQTT.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/flipbot/pkg/env"
	"github.com/robotalks/flipbot/pkg/telemetry"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Wait is how long to wait for status reports.
	Wait time.Duration

	Shell  *ishell.Shell
	Config *env.Config
	Queue  *telemetry.Queue
	Board  *StatusBoard
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&RobotsCmd,
		&UseCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Wait:        time.Second,

		Shell:  ishell.New(),
		Config: conf,
		Board:  NewStatusBoard(),
	}
	s.Shell.Set(shellKey, s)
	s.updatePrompt()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

func (s *Shell) updatePrompt() {
	if s.Config.ID == "" {
		s.Shell.SetPrompt(unconnectedPrompt)
		return
	}
	s.Shell.SetPrompt(fmt.Sprintf("[%s] > ", s.Config.ID))
}

// Connect connects the broker and starts tracking status reports.
func (s *Shell) Connect() error {
	if s.Queue != nil {
		return nil
	}
	q, err := telemetry.NewQueueFromURL(s.Config.MQTTBrokerURL)
	if err != nil {
		return err
	}
	q.Sub(telemetry.StatusPattern(s.Config.Type), s.Board.Handle)
	if err := q.Connect(); err != nil {
		return err
	}
	s.Queue = q
	return nil
}

// Use selects the robot commands are sent to.
func (s *Shell) Use(id string) {
	s.Config.ID = id
	s.updatePrompt()
}

// Publish sends msg to a topic of the selected robot.
func (s *Shell) Publish(topic func(telemetry.Topics) string, msg proto.Message) error {
	if err := s.Config.Validate(); err != nil {
		return err
	}
	if err := s.Connect(); err != nil {
		return err
	}
	return s.Queue.PubMsg(topic(s.Config.Topics()), msg)
}

// Print prints msg as JSON or proto text.
func (s *Shell) Print(c *ishell.Context, msg proto.Message) {
	if s.OutputJSON {
		out, err := json.Marshal(msg)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(proto.MarshalTextString(msg))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// StatusBoard keeps the latest status of every robot heard of.
type StatusBoard struct {
	lock    sync.Mutex
	latest  map[string]*telemetry.Status
	updated chan struct{}
}

// NewStatusBoard creates a StatusBoard.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{
		latest:  make(map[string]*telemetry.Status),
		updated: make(chan struct{}),
	}
}

// Handle implements telemetry.Handler.
func (b *StatusBoard) Handle(topic string, payload []byte) {
	var m telemetry.Status
	if err := proto.Unmarshal(payload, &m); err != nil || m.ID == "" {
		return
	}
	b.lock.Lock()
	b.latest[m.ID] = &m
	close(b.updated)
	b.updated = make(chan struct{})
	b.lock.Unlock()
}

// IDs lists the robots heard of.
func (b *StatusBoard) IDs() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	ids := make([]string, 0, len(b.latest))
	for id := range b.latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Next waits for the next status of robot id.
func (b *StatusBoard) Next(id string, timeout time.Duration) (*telemetry.Status, bool) {
	deadline := time.After(timeout)
	b.lock.Lock()
	prev := b.latest[id]
	for {
		updated := b.updated
		b.lock.Unlock()
		select {
		case <-deadline:
			return nil, false
		case <-updated:
		}
		b.lock.Lock()
		if m := b.latest[id]; m != prev {
			b.lock.Unlock()
			return m, true
		}
	}
}

var (
	// RobotsCmd lists robots reporting status.
	RobotsCmd = ishell.Cmd{
		Name:    "robots",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Connect(); err != nil {
				c.Err(err)
				return
			}
			time.Sleep(s.Wait)
			ids := s.Board.IDs()
			if s.OutputJSON {
				out, _ := json.Marshal(ids)
				c.Println(string(out))
				return
			}
			if len(ids) == 0 {
				c.Println("No robots found")
				return
			}
			for _, id := range ids {
				c.Println(id)
			}
		},
	}

	// UseCmd selects a robot.
	UseCmd = ishell.Cmd{
		Name:    "use",
		Aliases: []string{"u"},
		Help:    "ID",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) == 1 {
				s.Use(c.Args[0])
				return
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
				return
			}
			time.Sleep(s.Wait)
			ids := s.Board.IDs()
			switch {
			case len(ids) == 0:
				c.Err(fmt.Errorf("no robot discovered"))
			case len(ids) == 1 || !s.Interactive:
				s.Use(ids[0])
			default:
				s.Use(ids[s.Shell.MultiChoice(ids, "Which one to use?")])
			}
		},
	}

	// StatusCmd prints the next status report of the selected robot.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if err := s.Config.Validate(); err != nil {
				c.Err(err)
				return
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
				return
			}
			m, ok := s.Board.Next(s.Config.ID, s.Wait*3)
			if !ok {
				c.Err(fmt.Errorf("no status from %s", s.Config.ID))
				return
			}
			s.Print(c, m)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
