package gtf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGTF = `#!genome-build GRCh38
1	ensembl_havana	gene	69091	70008	.	+	.	gene_id "ENSG00000186092.6"; gene_name "OR4F5"; gene_biotype "protein_coding";
1	ensembl_havana	transcript	69091	70008	.	+	.	gene_id "ENSG00000186092.6"; transcript_id "ENST00000335137.4"; gene_biotype "protein_coding";
1	havana	gene	89295	133723	.	-	.	gene_id "ENSG00000238009.6"; gene_name "AL627309.1"; gene_biotype "lncRNA";
X	ensembl_havana	gene	276322	303356	.	+	.	gene_id "ENSG00000002586.20"; gene_name "CD99"; gene_biotype "protein_coding";
Y	ensembl_havana	gene	2691187	2741309	.	+	.	gene_id "ENSG00000002586.20"; gene_name "CD99"; gene_biotype "protein_coding";
MT	insdc	gene	3307	4262	.	+	.	gene_id "ENSG00000198888.2"; gene_name "MT-ND1"; gene_biotype "protein_coding";
KI270728.1	havana	gene	1	1000	.	+	.	gene_id "ENSG00000999999.1"; gene_name "SCAFFOLDGENE"; gene_biotype "protein_coding";
22	havana	gene	1	1000	.	+	.	gene_id "ENSG00000888888.1"; gene_biotype "protein_coding";
6	ensembl_havana	gene	29945884	29947497	.	+	.	gene_id "ENSG00000204625.9"; gene_name "HCG4"; gene_biotype "polymorphic_pseudogene";
`

func TestExtractGenesFrom(t *testing.T) {
	genes, stats, err := ExtractGenesFrom(strings.NewReader(sampleGTF), Options{})
	require.NoError(t, err)

	names := make([]string, len(genes))
	for i, g := range genes {
		names[i] = g.Name
	}
	assert.Equal(t, []string{"CD99", "HCG4", "MT-ND1", "OR4F5"}, names)

	assert.Equal(t, 10, stats.Lines, "header plus nine records")
	assert.Equal(t, 4, stats.Genes)
	assert.Equal(t, 1, stats.MissingName)
	assert.Equal(t, []string{"KI270728.1"}, stats.ExcludedChroms)
	assert.Equal(t, 4, stats.Biotypes["protein_coding"])
	assert.Equal(t, 1, stats.Biotypes["polymorphic_pseudogene"])
	assert.Equal(t, 1, stats.Sources["insdc"])
}

func TestExtractGenesFrom_PseudoautosomalAggregation(t *testing.T) {
	// CD99 is annotated on both X and Y with the same Ensembl ID; the two
	// records collapse into a single gene spanning both chromosomes.
	genes, stats, err := ExtractGenesFrom(strings.NewReader(sampleGTF), Options{})
	require.NoError(t, err)

	var cd99 int = -1
	for i, g := range genes {
		if g.Name == "CD99" {
			cd99 = i
		}
	}
	require.NotEqual(t, -1, cd99)
	assert.Equal(t, []string{"X", "Y"}, genes[cd99].Chromosomes)
	assert.Equal(t, []string{"ENSG00000002586"}, genes[cd99].EnsemblIDs)
	assert.Equal(t, 1, stats.RedundantGenes)
}

func TestExtractGenesFrom_ChromPrefixStripped(t *testing.T) {
	gencode := "chr1\thavana\tgene\t1\t100\t.\t+\t.\tgene_id \"ENSG1.1\"; gene_name \"A1\"; gene_type \"protein_coding\";\n"
	genes, _, err := ExtractGenesFrom(strings.NewReader(gencode), Options{})
	require.NoError(t, err)
	require.Len(t, genes, 1)
	assert.Equal(t, "A1", genes[0].Name)
	assert.Equal(t, []string{"1"}, genes[0].Chromosomes)
}

func TestExtractGenesFrom_CustomOptions(t *testing.T) {
	genes, _, err := ExtractGenesFrom(strings.NewReader(sampleGTF), Options{
		ChromPattern: `X`,
	})
	require.NoError(t, err)
	require.Len(t, genes, 1)
	assert.Equal(t, "CD99", genes[0].Name)
	assert.Equal(t, []string{"X"}, genes[0].Chromosomes)

	genes, _, err = ExtractGenesFrom(strings.NewReader(sampleGTF), Options{
		FeatureType: "transcript",
	})
	require.NoError(t, err)
	assert.Empty(t, genes, "transcript records carry no gene_name attribute")
}

func TestExtractGenesFrom_BadPattern(t *testing.T) {
	_, _, err := ExtractGenesFrom(strings.NewReader(sampleGTF), Options{
		ChromPattern: `(`,
	})
	assert.Error(t, err)
}
