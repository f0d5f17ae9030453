package bot

import (
	"strings"
	"sync"

	"toornabot/internal/common"
	"toornabot/internal/toornament"

	"github.com/gravitational/trace"
	"github.com/rs/zerolog/log"
)

const (
	STAGES_KEY    string = "stages.json"
	SEQUENCES_KEY string = "sequences.json"
)

// StageRecord maps an alias to the group it stands for,
// together with how the group is presented
type StageRecord struct {
	Alias  string           `json:"alias"`
	Group  toornament.Group `json:"group"`
	Logo   string           `json:"logo"`
	Colour string           `json:"colour"`
}

// SequenceRecord is an ordered list of stage aliases posted together
type SequenceRecord struct {
	Alias  string   `json:"alias"`
	Groups []string `json:"groups"`
}

// DatabaseBot keeps the stage and sequence lists in memory
// and writes the whole list back every time one changes
type DatabaseBot struct {
	database  *common.Database
	mutex     sync.Mutex
	stages    []StageRecord
	sequences []SequenceRecord
}

func NewDatabaseBot(database *common.Database) (*DatabaseBot, error) {

	db := &DatabaseBot{database: database, stages: []StageRecord{}, sequences: []SequenceRecord{}}
	if _, err := database.Load(STAGES_KEY, &db.stages); err != nil {
		return nil, trace.Wrap(err, "loading stages")
	}
	if _, err := database.Load(SEQUENCES_KEY, &db.sequences); err != nil {
		return nil, trace.Wrap(err, "loading sequences")
	}
	log.Info().Int("stages", len(db.stages)).Int("sequences", len(db.sequences)).Msg("Registry loaded")
	return db, nil
}

// AddStage stores the record, replacing any record with the same alias
func (db *DatabaseBot) AddStage(record StageRecord) error {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	record.Alias = strings.ToLower(record.Alias)
	stages := []StageRecord{}
	for _, stage := range db.stages {
		if stage.Alias != record.Alias {
			stages = append(stages, stage)
		}
	}
	stages = append(stages, record)
	if err := db.database.Save(STAGES_KEY, stages); err != nil {
		return trace.Wrap(err)
	}
	db.stages = stages
	return nil
}

// RemoveStage drops every record whose alias or group name matches.
// It returns false when nothing matched
func (db *DatabaseBot) RemoveStage(name string) (bool, error) {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	stages := []StageRecord{}
	for _, stage := range db.stages {
		if !stage.matches(name) {
			stages = append(stages, stage)
		}
	}
	if len(stages) == len(db.stages) {
		return false, nil
	}
	if err := db.database.Save(STAGES_KEY, stages); err != nil {
		return false, trace.Wrap(err)
	}
	db.stages = stages
	return true, nil
}

func (db *DatabaseBot) GetStage(name string) (StageRecord, error) {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, stage := range db.stages {
		if stage.matches(name) {
			return stage, nil
		}
	}
	return StageRecord{}, trace.NotFound("group %q is not registered", name)
}

func (db *DatabaseBot) GetStages() []StageRecord {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return append([]StageRecord{}, db.stages...)
}

// AddSequence stores the record, replacing any sequence with the same alias
func (db *DatabaseBot) AddSequence(record SequenceRecord) error {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	record.Alias = strings.ToLower(record.Alias)
	sequences := []SequenceRecord{}
	for _, sequence := range db.sequences {
		if sequence.Alias != record.Alias {
			sequences = append(sequences, sequence)
		}
	}
	sequences = append(sequences, record)
	if err := db.database.Save(SEQUENCES_KEY, sequences); err != nil {
		return trace.Wrap(err)
	}
	db.sequences = sequences
	return nil
}

func (db *DatabaseBot) RemoveSequence(alias string) (bool, error) {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	alias = strings.ToLower(alias)
	sequences := []SequenceRecord{}
	for _, sequence := range db.sequences {
		if sequence.Alias != alias {
			sequences = append(sequences, sequence)
		}
	}
	if len(sequences) == len(db.sequences) {
		return false, nil
	}
	if err := db.database.Save(SEQUENCES_KEY, sequences); err != nil {
		return false, trace.Wrap(err)
	}
	db.sequences = sequences
	return true, nil
}

func (db *DatabaseBot) GetSequence(alias string) (SequenceRecord, error) {

	db.mutex.Lock()
	defer db.mutex.Unlock()

	alias = strings.ToLower(alias)
	for _, sequence := range db.sequences {
		if sequence.Alias == alias {
			return sequence, nil
		}
	}
	return SequenceRecord{}, trace.NotFound("sequence %q is not registered", alias)
}

func (stage StageRecord) matches(name string) bool {
	return stage.Alias == strings.ToLower(name) || strings.EqualFold(stage.Group.Name, name)
}
