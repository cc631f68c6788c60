package web

import (
	"html/template"
	"net/http"
)

var indexHTML = `
<!DOCTYPE html>
<html>
<head>
	<title>Sales Insights</title>
	<meta charset="UTF-8" />
	<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
	<style>
		body { font-family: Arial; margin: 40px; }
		.box { padding: 20px; border: 1px solid #ccc; width: 600px; }
		.ask { margin-top: 30px; padding: 10px; border: 1px solid #555; width: 600px; }
		#answerContent { white-space: pre-wrap; font-family: monospace; margin-top: 15px; }
	</style>
</head>
<body>

<h2>Sales Insights</h2>

<div class="box">
	<p><b>Database Loaded:</b> {{ .DBLoaded }}</p>
	<p><b>Tables:</b> {{ range $i, $t := .Tables }}{{ if $i }}, {{ end }}{{ $t }}{{ end }}</p>
</div>

<div class="ask">
	<input id="questionInput" style="width: 450px;" placeholder="Ask a question about your sales..." />
	<button onclick="submitQuestion()">Ask</button>
	<div id="answerContent"></div>
</div>

<script>
const endpoint = {{ .Endpoint }};
const typeDelay = {{ .TypeDelayMS }};
const questionInput = document.getElementById("questionInput");
const answerBox = document.getElementById("answerContent");

questionInput.addEventListener("keydown", (e) => {
	if (e.key === "Enter") submitQuestion();
});

function submitQuestion() {
	const question = questionInput.value.trim();
	if (!question) return;

	answerBox.textContent = "";

	fetch(endpoint, {
		method: "POST",
		headers: { "Content-Type": "application/json" },
		body: JSON.stringify({ question })
	})
		.then((res) => {
			if (!res.ok) throw new Error("Server error");
			return res.json();
		})
		.then(async (data) => {
			await typeText(answerBox, JSON.stringify(data.answer, null, 2));

			if (
				Array.isArray(data.answer) &&
				data.answer.length > 0 &&
				Object.keys(data.answer[0]).length >= 2 &&
				isTabular(data.answer)
			) {
				renderChart(data.answer);
			} else {
				const p = document.createElement("p");
				p.innerHTML = "<i>Chart rendering coming soon!</i>";
				answerBox.appendChild(p);
			}
		})
		.catch((err) => {
			console.error("Fetch failed:", err);
			answerBox.innerHTML = "<span style='color:red'>Error: Failed to fetch</span>";
		});
}

async function typeText(container, text) {
	for (const ch of text) {
		container.appendChild(document.createTextNode(ch));
		await new Promise((resolve) => setTimeout(resolve, typeDelay));
	}
}

function renderChart(data) {
	const keys = Object.keys(data[0]);
	const xKey = keys[0];
	const yKey = keys[1];

	const trace = {
		x: data.map((row) => row[xKey]),
		y: data.map((row) => row[yKey]),
		type: "bar",
		marker: { color: "purple" }
	};

	const layout = {
		title: yKey + " by " + xKey,
		xaxis: { title: xKey },
		yaxis: { title: yKey },
		margin: { t: 40 }
	};

	const chartDiv = document.createElement("div");
	answerBox.appendChild(chartDiv);
	Plotly.newPlot(chartDiv, [trace], layout);
}

function isTabular(data) {
	if (!Array.isArray(data) || data.length === 0) return false;
	const keys = Object.keys(data[0]);
	return data.every(
		(item) =>
			item !== null &&
			typeof item === "object" &&
			!Array.isArray(item) &&
			Object.keys(item).length === keys.length &&
			keys.every((k) => k in item)
	);
}
</script>

</body>
</html>
`

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type IndexData struct {
	DBLoaded    bool
	Tables      []string
	Endpoint    string
	TypeDelayMS int64
}

func IndexPage(w http.ResponseWriter, data IndexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}
