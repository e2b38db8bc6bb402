package model

// regressor evaluates one input row given in artifact feature order.
type regressor interface {
	predict(x []float64) float64
}

type linear struct {
	intercept float64
	coef      []float64
}

func (l linear) predict(x []float64) float64 {
	y := l.intercept
	for i, c := range l.coef {
		y += c * x[i]
	}
	return y
}

// forest averages the outputs of its regression trees.
type forest struct {
	trees []Tree
}

func (f forest) predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.eval(x)
	}
	return sum / float64(len(f.trees))
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		nd := t.Nodes[i]
		if nd.Left < 0 {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left
		} else {
			i = nd.Right
		}
	}
}
