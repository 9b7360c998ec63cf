package projector

import "github.com/tailfin-ai/tailfin/internal/core/domain"

// toolState accumulates everything observed about one tool call across the
// stream. Records are created lazily on first reference and never deleted;
// fields merge last-write-wins, with absent observations never erasing
// previously stored values.
type toolState struct {
	toolType   domain.ToolType
	toolName   string
	lastStatus string

	// web_search
	query   string
	sources []string

	// file_search
	fileSearchQueries []string
	fileSearchResults []domain.FileSearchResult

	// code_interpreter
	containerID   string
	containerMode string

	// image_generation
	imageRevisedPrompt     string
	imageFormat            string
	imageSize              string
	imageQuality           string
	imageBackground        string
	imagePartialImageIndex *int

	// function / mcp
	argumentsText string
	serverLabel   string
}

// toolStateStore indexes tool states by tool-call id.
type toolStateStore map[string]*toolState

// getOrCreate returns the state for callID, creating it with defaultType on
// first reference. When the record already exists, defaultType may upgrade a
// generic function placeholder to a more specific discovered type; a known
// specific type is never downgraded.
func (s toolStateStore) getOrCreate(callID string, defaultType domain.ToolType) *toolState {
	if st, ok := s[callID]; ok {
		if st.toolType == domain.ToolFunction && defaultType != "" && defaultType != domain.ToolFunction {
			st.toolType = defaultType
		}
		return st
	}
	if defaultType == "" {
		defaultType = domain.ToolFunction
	}
	st := &toolState{toolType: defaultType}
	s[callID] = st
	return st
}

// addSource appends a URL to the web-search source list if it is not already
// present. Reports whether the list changed.
func (st *toolState) addSource(url string) bool {
	for _, s := range st.sources {
		if s == url {
			return false
		}
	}
	st.sources = append(st.sources, url)
	return true
}

// merge folds a tool-call payload into the state, last-write-wins per field.
func (st *toolState) merge(tc *domain.ToolCallPayload) {
	if tc.Name != "" {
		st.toolName = tc.Name
	}
	if tc.Status != "" {
		st.lastStatus = tc.Status
	}
	if tc.Query != "" {
		st.query = tc.Query
	}
	for _, src := range tc.Sources {
		st.addSource(src)
	}
	if len(tc.Queries) > 0 {
		st.fileSearchQueries = tc.Queries
	}
	if len(tc.Results) > 0 {
		st.fileSearchResults = tc.Results
	}
	if tc.ContainerID != "" {
		st.containerID = tc.ContainerID
	}
	if tc.ContainerMode != "" {
		st.containerMode = tc.ContainerMode
	}
	if tc.RevisedPrompt != "" {
		st.imageRevisedPrompt = tc.RevisedPrompt
	}
	if tc.ImageFormat != "" {
		st.imageFormat = tc.ImageFormat
	}
	if tc.ImageSize != "" {
		st.imageSize = tc.ImageSize
	}
	if tc.ImageQuality != "" {
		st.imageQuality = tc.ImageQuality
	}
	if tc.ImageBackground != "" {
		st.imageBackground = tc.ImageBackground
	}
	if tc.PartialImageIndex != nil {
		st.imagePartialImageIndex = tc.PartialImageIndex
	}
	if tc.ServerLabel != "" {
		st.serverLabel = tc.ServerLabel
	}
}

// snapshot renders the accumulated state as a public tool.status payload.
func (st *toolState) snapshot(callID string, status domain.ToolStatus) domain.ToolStatusData {
	return domain.ToolStatusData{
		ToolCallID:             callID,
		ToolType:               st.toolType,
		Status:                 status,
		ToolName:               st.toolName,
		Query:                  st.query,
		Sources:                st.sources,
		FileSearchQueries:      st.fileSearchQueries,
		FileSearchResults:      st.fileSearchResults,
		ContainerID:            st.containerID,
		ContainerMode:          st.containerMode,
		ImageRevisedPrompt:     st.imageRevisedPrompt,
		ImageFormat:            st.imageFormat,
		ImageSize:              st.imageSize,
		ImageQuality:           st.imageQuality,
		ImageBackground:        st.imageBackground,
		ImagePartialImageIndex: st.imagePartialImageIndex,
		ServerLabel:            st.serverLabel,
	}
}
