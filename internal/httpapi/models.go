package httpapi

// dockerWebhook is the payload Docker Hub posts on an image push.
type dockerWebhook struct {
	CallbackURL string `json:"callback_url"`
	PushData    struct {
		Tag string `json:"tag"`
	} `json:"push_data"`
	Repository struct {
		RepoName string `json:"repo_name"`
	} `json:"repository"`
}

// gitHubWebhook covers the two event shapes this server handles: ping and
// push. Both are decoded into the same struct; Zen is non-empty only for
// ping, After only for push.
type gitHubWebhook struct {
	// ping
	Zen    string `json:"zen"`
	HookID int64  `json:"hook_id"`

	// push
	After      string `json:"after"`
	Before     string `json:"before"`
	Reference  string `json:"ref"`
	Repository struct {
		FullName string `json:"full_name"`
		CloneURL string `json:"clone_url"`
	} `json:"repository"`
}

func (g gitHubWebhook) isPush() bool {
	return g.After != ""
}
