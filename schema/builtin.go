package schema

func common(extra ...Attribute) []Attribute {
	attrs := []Attribute{
		{Name: "id", Type: String},
		{Name: "name", Type: String},
		{Name: "description", Type: String},
		{Name: "type", Type: String},
		{Name: "scope_id", Type: String, Path: "scope.id"},
		{Name: "created_time", Type: Date},
		{Name: "updated_time", Type: Date},
	}
	return append(attrs, extra...)
}

var commonSortable = []string{"name", "type", "created_time", "updated_time"}

var commonFullText = []string{"id", "name", "description"}

// Default returns the registry of resource types the console mirrors locally.
func Default() *Registry {
	r, err := NewRegistry(DefaultTypes()...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultTypes returns fresh copies of the built-in resource types.
func DefaultTypes() []*ResourceType {
	return []*ResourceType{
		{
			Name:       "scope",
			Attributes: common(),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name: "target",
			Attributes: common(
				Attribute{Name: "address", Type: String},
				Attribute{Name: "default_port", Type: Number, Path: "attributes.default_port"},
				Attribute{Name: "session_max_seconds", Type: Number},
				Attribute{Name: "authorized_actions", Type: JSON},
			),
			Sortable: append(append([]string(nil), commonSortable...), "address", "default_port"),
			FullText: []string{"id", "name", "description", "address"},
		},
		{
			Name: "session",
			Attributes: []Attribute{
				{Name: "id", Type: String},
				{Name: "type", Type: String},
				{Name: "status", Type: String},
				{Name: "endpoint", Type: String},
				{Name: "scope_id", Type: String, Path: "scope.id"},
				{Name: "target_id", Type: String},
				{Name: "user_id", Type: String},
				{Name: "created_time", Type: Date},
				{Name: "updated_time", Type: Date},
				{Name: "expiration_time", Type: Date},
			},
			Sortable: []string{"status", "type", "created_time", "updated_time", "expiration_time"},
			FullText: []string{"id", "endpoint", "target_id", "user_id"},
		},
		{
			Name:       "group",
			Attributes: common(Attribute{Name: "member_ids", Type: JSON}),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name: "user",
			Attributes: common(
				Attribute{Name: "login_name", Type: String},
				Attribute{Name: "full_name", Type: String},
				Attribute{Name: "email", Type: String},
			),
			Sortable: append(append([]string(nil), commonSortable...), "login_name", "email"),
			FullText: []string{"id", "name", "description", "login_name", "full_name", "email"},
		},
		{
			Name:       "role",
			Attributes: common(Attribute{Name: "grant_strings", Type: JSON}),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name:       "auth-method",
			Attributes: common(Attribute{Name: "is_primary", Type: Boolean}),
			Sortable:   append(append([]string(nil), commonSortable...), "is_primary"),
			FullText:   commonFullText,
		},
		{
			Name:       "host-catalog",
			Attributes: common(Attribute{Name: "plugin_name", Type: String, Path: "plugin.name"}),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name:       "host-set",
			Attributes: common(Attribute{Name: "host_catalog_id", Type: String}),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name: "host",
			Attributes: common(
				Attribute{Name: "host_catalog_id", Type: String},
				Attribute{Name: "address", Type: String, Path: "attributes.address"},
			),
			Sortable: append(append([]string(nil), commonSortable...), "address"),
			FullText: []string{"id", "name", "description", "address"},
		},
		{
			Name:       "credential-store",
			Attributes: common(),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name:       "credential",
			Attributes: common(Attribute{Name: "credential_store_id", Type: String}),
			Sortable:   commonSortable,
			FullText:   commonFullText,
		},
		{
			Name:   "alias",
			Plural: "aliases",
			Attributes: common(
				Attribute{Name: "value", Type: String},
				Attribute{Name: "destination_id", Type: String},
			),
			Sortable: append(append([]string(nil), commonSortable...), "value"),
			FullText: []string{"id", "name", "description", "value", "destination_id"},
		},
		{
			Name: "session-recording",
			Attributes: []Attribute{
				{Name: "id", Type: String},
				{Name: "type", Type: String},
				{Name: "state", Type: String},
				{Name: "scope_id", Type: String, Path: "scope.id"},
				{Name: "duration", Type: String},
				{Name: "bytes_up", Type: Number},
				{Name: "bytes_down", Type: Number},
				{Name: "created_time", Type: Date},
				{Name: "updated_time", Type: Date},
				{Name: "start_time", Type: Date},
				{Name: "end_time", Type: Date},
			},
			Sortable: []string{"state", "created_time", "start_time", "end_time", "bytes_up", "bytes_down"},
			FullText: []string{"id", "state"},
		},
		{
			Name: "worker",
			Attributes: common(
				Attribute{Name: "address", Type: String},
				Attribute{Name: "release_version", Type: String},
				Attribute{Name: "active_connection_count", Type: Number},
				Attribute{Name: "last_status_time", Type: Date},
			),
			Sortable: append(append([]string(nil), commonSortable...), "address", "release_version", "last_status_time"),
			FullText: []string{"id", "name", "description", "address"},
		},
	}
}
