package bot

import (
	"strconv"
	"sync"

	"toornabot/internal/common"

	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
)

const DEFAULT_ROLES_KEY string = "roles.json"

type RoleRecord struct {
	Guild string `json:"guild"`
	Role  string `json:"role"`
}

// UnmarshalJSON also accepts ids written as JSON numbers,
// which is how older role files store them
func (record *RoleRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		Guild jsoniter.RawMessage `json:"guild"`
		Role  jsoniter.RawMessage `json:"role"`
	}
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return trace.Wrap(err)
	}
	guild, err := snowflake(raw.Guild)
	if err != nil {
		return trace.Wrap(err, "guild")
	}
	role, err := snowflake(raw.Role)
	if err != nil {
		return trace.Wrap(err, "role")
	}
	record.Guild, record.Role = guild, role
	return nil
}

// snowflake reads a discord id given either as a string or as an integer
func snowflake(raw jsoniter.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", trace.BadParameter("missing id")
	}
	if raw[0] == '"' {
		var id string
		if err := jsoniter.Unmarshal(raw, &id); err != nil {
			return "", trace.Wrap(err)
		}
		return id, nil
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return "", trace.BadParameter("id %s is not valid", raw)
	}
	return strconv.FormatUint(id, 10), nil
}

// Permissions is the list of roles allowed to use the bot, per guild.
// Administrators are always allowed
type Permissions struct {
	database *common.Database
	key      string
	mutex    sync.Mutex
	roles    []RoleRecord
}

func NewPermissions(database *common.Database, key string) (*Permissions, error) {
	if key == "" {
		key = DEFAULT_ROLES_KEY
	}
	permissions := &Permissions{database: database, key: key, roles: []RoleRecord{}}
	if _, err := database.Load(key, &permissions.roles); err != nil {
		return nil, trace.Wrap(err, "loading roles")
	}
	return permissions, nil
}

// Allowed tells whether a member holding memberRoles may run commands in the guild
func (permissions *Permissions) Allowed(guildId string, administrator bool, memberRoles []string) bool {
	if administrator {
		return true
	}

	permissions.mutex.Lock()
	defer permissions.mutex.Unlock()

	for _, record := range permissions.roles {
		if record.Guild != guildId {
			continue
		}
		for _, role := range memberRoles {
			if role == record.Role {
				return true
			}
		}
	}
	return false
}

// Add returns false when the role was already in the list
func (permissions *Permissions) Add(guildId string, roleId string) (bool, error) {

	permissions.mutex.Lock()
	defer permissions.mutex.Unlock()

	for _, record := range permissions.roles {
		if record.Guild == guildId && record.Role == roleId {
			return false, nil
		}
	}
	roles := append(append([]RoleRecord{}, permissions.roles...), RoleRecord{Guild: guildId, Role: roleId})
	if err := permissions.database.Save(permissions.key, roles); err != nil {
		return false, trace.Wrap(err)
	}
	permissions.roles = roles
	return true, nil
}

// Remove returns false when the role was not in the list
func (permissions *Permissions) Remove(guildId string, roleId string) (bool, error) {

	permissions.mutex.Lock()
	defer permissions.mutex.Unlock()

	roles := []RoleRecord{}
	for _, record := range permissions.roles {
		if record.Guild != guildId || record.Role != roleId {
			roles = append(roles, record)
		}
	}
	if len(roles) == len(permissions.roles) {
		return false, nil
	}
	if err := permissions.database.Save(permissions.key, roles); err != nil {
		return false, trace.Wrap(err)
	}
	permissions.roles = roles
	return true, nil
}

func (permissions *Permissions) Roles(guildId string) []string {

	permissions.mutex.Lock()
	defer permissions.mutex.Unlock()

	roles := []string{}
	for _, record := range permissions.roles {
		if record.Guild == guildId {
			roles = append(roles, record.Role)
		}
	}
	return roles
}
