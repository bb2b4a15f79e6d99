package checkpointer

// nStep implements checkpointing every N iterations
type nStep struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename of the file to save the object in
	// after an iteration. Use ItrFilename to save each iteration in a
	// separate file.
	filename func(itr int) string
}

// NewNStep returns a checkpointer that checkpoints every n iterations.
func NewNStep(n int, object Serializable,
	filename func(itr int) string) Checkpointer {
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}
}

// Checkpoint saves the Checkpointer's tracked object if itr is a
// multiple of the interval
func (n *nStep) Checkpoint(itr int) error {
	if itr%n.interval == 0 {
		return Save(n.filename(itr), n.object)
	}
	return nil
}
