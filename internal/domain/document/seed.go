package document

// seedDocuments is the built-in quiz catalog with pre-computed 3-dimensional embeddings.
var seedDocuments = []struct {
	id        int
	content   string
	embedding []float64
}{
	{1, "MongoDB offers scalable NoSQL database solutions.", []float64{0.2, 0.8, 0.4}},
	{2, "Vector search enables semantic similarity in queries.", []float64{0.9, 0.1, 0.5}},
	{3, "Cloud computing provides flexible infrastructure.", []float64{0.3, 0.6, 0.7}},
	{4, "Machine learning algorithms improve data analysis.", []float64{0.7, 0.2, 0.8}},
	{5, "Data security is crucial for business operations.", []float64{0.5, 0.5, 0.6}},
	{6, "Agile methodology enhances software development.", []float64{0.1, 0.9, 0.3}},
	{7, "Blockchain technology ensures data integrity.", []float64{0.6, 0.4, 0.2}},
	{8, "APIs facilitate seamless system integration.", []float64{0.4, 0.7, 0.1}},
}

// SeedCatalog returns the built-in catalog.
func SeedCatalog() *Catalog {
	docs := make([]Document, len(seedDocuments))
	for i, s := range seedDocuments {
		d, err := New(s.id, s.content, s.embedding)
		if err != nil {
			panic("invalid seed document: " + err.Error())
		}
		docs[i] = d
	}
	c, err := NewCatalog(docs)
	if err != nil {
		panic("invalid seed catalog: " + err.Error())
	}
	return c
}
